package handlers

import (
	"net/http"
	"strconv"
	"time"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// AssignmentResponse is an assignment with its priority at response time
type AssignmentResponse struct {
	models.Assignment
	Priority services.Priority `json:"priority"`
}

func withPriority(assignments []models.Assignment, now time.Time) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentResponse{Assignment: a, Priority: services.ClassifyPriority(a.DueAt, now)})
	}
	return out
}

// CreateAssignment handles the creation of a one-off assignment
func (h *Handler) CreateAssignment(c *gin.Context) {
	var request models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}

	userID := c.GetString("userID")
	ctx := c.Request.Context()
	if _, err := h.store.GetCourse(ctx, userID, request.CourseID); err != nil {
		h.handleStoreError(c, "Course", err)
		return
	}

	assignmentType := request.Type
	if assignmentType == "" {
		assignmentType = models.HomeworkAssignment
	}
	now := h.clock.Now()
	assignment := models.Assignment{
		UserID:      userID,
		CourseID:    request.CourseID,
		Name:        request.Name,
		DueAt:       request.DueAt,
		Type:        assignmentType,
		GradeWeight: request.GradeWeight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateAssignment(ctx, &assignment); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to create assignment", err)
		return
	}
	c.JSON(http.StatusCreated, AssignmentResponse{Assignment: assignment, Priority: services.ClassifyPriority(assignment.DueAt, now)})
}

// GetAssignments lists the caller's assignments by due date, optionally
// limited to one semester.
func (h *Handler) GetAssignments(c *gin.Context) {
	assignments, err := h.store.ListAssignments(c.Request.Context(), c.GetString("userID"), c.Query("semester_id"))
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to fetch assignments", err)
		return
	}
	c.JSON(http.StatusOK, withPriority(assignments, h.clock.Now()))
}

// ToggleComplete flips an assignment between done and open
func (h *Handler) ToggleComplete(c *gin.Context) {
	ctx := c.Request.Context()
	assignment, err := h.store.GetAssignment(ctx, c.GetString("userID"), c.Param("assignment_id"))
	if err != nil {
		h.handleStoreError(c, "Assignment", err)
		return
	}

	now := h.clock.Now()
	assignment.ToggleComplete(now)
	if err := h.store.SaveAssignment(ctx, assignment); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to update assignment", err)
		return
	}
	c.JSON(http.StatusOK, AssignmentResponse{Assignment: *assignment, Priority: services.ClassifyPriority(assignment.DueAt, now)})
}

// SearchAssignments ranks the caller's assignments by how well their name
// matches the q parameter.
func (h *Handler) SearchAssignments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	results, err := h.search.SearchAssignments(c.Request.Context(), c.GetString("userID"), c.Query("q"), limit, offset)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to search assignments", err)
		return
	}

	now := h.clock.Now()
	type searchHit struct {
		AssignmentResponse
		Score float64 `json:"score"`
	}
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			AssignmentResponse: AssignmentResponse{Assignment: r.Assignment, Priority: services.ClassifyPriority(r.Assignment.DueAt, now)},
			Score:              r.Score,
		})
	}
	c.JSON(http.StatusOK, hits)
}
