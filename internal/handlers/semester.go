package handlers

import (
	"net/http"

	"planner/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateSemester handles the creation of a new semester
func (h *Handler) CreateSemester(c *gin.Context) {
	var request models.CreateSemesterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}

	semester := models.Semester{
		UserID:    c.GetString("userID"),
		Name:      request.Name,
		StartDate: request.StartDate,
		EndDate:   request.EndDate,
		IsActive:  request.IsActive,
	}
	if err := h.store.CreateSemester(c.Request.Context(), &semester); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create semester", err)
		return
	}
	c.JSON(http.StatusCreated, semester)
}

// GetSemesters lists the caller's semesters with their courses
func (h *Handler) GetSemesters(c *gin.Context) {
	semesters, err := h.store.ListSemesters(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch semesters", err)
		return
	}
	c.JSON(http.StatusOK, semesters)
}

// CreateCourse adds a course to one of the caller's semesters
func (h *Handler) CreateCourse(c *gin.Context) {
	userID := c.GetString("userID")
	semester, err := h.store.GetSemester(c.Request.Context(), userID, c.Param("semester_id"))
	if err != nil {
		h.handleStoreError(c, "Semester", err)
		return
	}

	var request models.CreateCourseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}

	course := models.Course{
		UserID:     userID,
		SemesterID: semester.ID,
		Name:       request.Name,
		Code:       request.Code,
	}
	if err := h.store.CreateCourse(c.Request.Context(), &course); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create course", err)
		return
	}
	c.JSON(http.StatusCreated, course)
}
