package handlers

import (
	"errors"
	"net/http"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateTemplate stores a recurring template and expands it right away
func (h *Handler) CreateTemplate(c *gin.Context) {
	var request models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := request.Validate(); err != nil {
		h.badRequest(c, err)
		return
	}

	userID := c.GetString("userID")
	ctx := c.Request.Context()
	if _, err := h.store.GetCourse(ctx, userID, request.CourseID); err != nil {
		h.handleStoreError(c, "Course", err)
		return
	}

	template := models.RecurringTemplate{
		UserID:      userID,
		CourseID:    request.CourseID,
		NamePattern: request.NamePattern,
		DayOfWeek:   request.DayOfWeek,
		Time:        request.Time,
		Pattern:     request.Pattern,
		StartDate:   request.StartDate,
		EndDate:     request.EndDate,
		Type:        request.Type,
	}
	if err := h.store.CreateTemplate(ctx, &template); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create template", err)
		return
	}

	created, err := h.recurrence.ExpandTemplate(ctx, template)
	if err != nil {
		h.logger.Printf("Warning: Template %s saved but expansion incomplete: %v", template.ID, err)
	}
	c.JSON(http.StatusCreated, gin.H{"template": template, "assignments": created})
}

// GetTemplates lists the caller's recurring templates
func (h *Handler) GetTemplates(c *gin.Context) {
	templates, err := h.store.ListTemplates(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch templates", err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// ExpandTemplate creates whatever occurrences the template is missing
func (h *Handler) ExpandTemplate(c *gin.Context) {
	ctx := c.Request.Context()
	template, err := h.store.GetTemplate(ctx, c.GetString("userID"), c.Param("template_id"))
	if err != nil {
		h.handleStoreError(c, "Template", err)
		return
	}

	created, err := h.recurrence.ExpandTemplate(ctx, *template)
	if errors.Is(err, services.ErrUnsupportedPattern) {
		h.handleError(c, http.StatusUnprocessableEntity, "Template pattern cannot be expanded", err)
		return
	}
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to expand template", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": len(created), "assignments": created})
}
