package handlers

import (
	"errors"
	"net/http"
	"strings"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// loadPreferences returns the caller's saved preferences or the defaults
func (h *Handler) loadPreferences(c *gin.Context) (models.UserPreferences, bool) {
	userID := c.GetString("userID")
	prefs, err := h.store.GetPreferences(c.Request.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		return models.DefaultPreferences(userID), true
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to load preferences", err)
		return models.UserPreferences{}, false
	}
	return prefs, true
}

// GetPreferences returns the caller's email settings
func (h *Handler) GetPreferences(c *gin.Context) {
	prefs, ok := h.loadPreferences(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's email settings
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var request models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := request.Validate(); err != nil {
		h.badRequest(c, err)
		return
	}

	prefs := models.DefaultPreferences(c.GetString("userID"))
	prefs.Email = request.Email
	prefs.DisplayName = request.DisplayName
	prefs.EmailNotificationsEnabled = request.EmailNotificationsEnabled
	prefs.DigestFrequency = request.DigestFrequency
	prefs.DigestTime = request.DigestTime
	if day := strings.ToLower(strings.TrimSpace(request.WeeklyDigestDay)); day != "" {
		prefs.WeeklyDigestDay = day
	}

	if err := h.store.SavePreferences(c.Request.Context(), &prefs); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to save preferences", err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// CheckDigest runs the digest and reminder triggers for the caller now
func (h *Handler) CheckDigest(c *gin.Context) {
	prefs, ok := h.loadPreferences(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.scheduler.CheckUser(c.Request.Context(), prefs))
}
