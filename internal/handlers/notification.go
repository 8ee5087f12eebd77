package handlers

import (
	"errors"
	"net/http"

	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// GetNotifications returns the caller's inbox, newest first
func (h *Handler) GetNotifications(c *gin.Context) {
	inbox, err := h.notifications.Inbox(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch notifications", err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

// MarkNotificationRead flags one notification as read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id := c.Param("notification_id")
	if err := h.notifications.MarkRead(c.Request.Context(), c.GetString("userID"), id); err != nil {
		h.notificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead flags every notification of the caller as read
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), c.GetString("userID")); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to mark notifications as read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// DeleteNotification removes one notification
func (h *Handler) DeleteNotification(c *gin.Context) {
	id := c.Param("notification_id")
	if err := h.notifications.Delete(c.Request.Context(), c.GetString("userID"), id); err != nil {
		h.notificationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) notificationError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		h.handleError(c, http.StatusNotFound, "Notification not found", err)
		return
	}
	h.handleError(c, http.StatusInternalServerError, "Failed to update notification", err)
}
