package handlers

import (
	"errors"
	"net/http"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// Dashboard brings recurring assignments and deadline notifications up to
// date, then returns the caller's assignments and inbox. Without an active
// semester every semester is covered. Background failures are logged only.
func (h *Handler) Dashboard(c *gin.Context) {
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	if _, err := h.recurrence.ExpandAll(ctx, userID); err != nil {
		h.logger.Printf("Warning: Recurring expansion for user %s incomplete: %v", userID, err)
	}

	var semester *models.Semester
	semesterID := ""
	active, err := h.store.ActiveSemester(ctx, userID)
	switch {
	case err == nil:
		semester = active
		semesterID = active.ID
	case !errors.Is(err, services.ErrNotFound):
		h.logger.Printf("Warning: Failed to load active semester for user %s: %v", userID, err)
	}

	materialized, err := h.notifications.MaterializeDeadlines(ctx, userID, semesterID)
	if err != nil {
		h.logger.Printf("Warning: Deadline notifications for user %s incomplete: %v", userID, err)
	}

	assignments, err := h.store.ListAssignments(ctx, userID, semesterID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch assignments", err)
		return
	}
	inbox, err := h.notifications.Inbox(ctx, userID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"semester":      semester,
		"assignments":   withPriority(assignments, h.clock.Now()),
		"notifications": inbox,
		"materialized":  materialized,
	})
}
