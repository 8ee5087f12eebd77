package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller's identity, set by the upstream auth proxy
const UserIDHeader = "X-User-ID"

// Store is the record store the HTTP layer reads and writes
type Store interface {
	CreateSemester(ctx context.Context, semester *models.Semester) error
	ListSemesters(ctx context.Context, userID string) ([]models.Semester, error)
	GetSemester(ctx context.Context, userID, id string) (*models.Semester, error)
	ActiveSemester(ctx context.Context, userID string) (*models.Semester, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourse(ctx context.Context, userID, id string) (*models.Course, error)

	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, userID, id string) (*models.Assignment, error)
	SaveAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignments(ctx context.Context, userID, semesterID string) ([]models.Assignment, error)

	CreateTemplate(ctx context.Context, t *models.RecurringTemplate) error
	GetTemplate(ctx context.Context, userID, id string) (*models.RecurringTemplate, error)
	ListTemplates(ctx context.Context, userID string) ([]models.RecurringTemplate, error)

	GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error)
	SavePreferences(ctx context.Context, prefs *models.UserPreferences) error
}

// Handler serves the planner API
type Handler struct {
	store         Store
	recurrence    *services.RecurrenceService
	notifications *services.NotificationService
	scheduler     *services.DigestScheduler
	search        *services.SearchService
	clock         services.Clock
	logger        *log.Logger
}

// New wires the handler to its store and services
func New(store Store, recurrence *services.RecurrenceService, notifications *services.NotificationService, scheduler *services.DigestScheduler, search *services.SearchService, clock services.Clock, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		store:         store,
		recurrence:    recurrence,
		notifications: notifications,
		scheduler:     scheduler,
		search:        search,
		clock:         clock,
		logger:        logger,
	}
}

// RegisterRoutes mounts every planner route on router
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", HealthHandler)

	protected := router.Group("")
	protected.Use(RequireUser())
	{
		protected.POST("/semesters", h.CreateSemester)
		protected.GET("/semesters", h.GetSemesters)
		protected.POST("/semesters/:semester_id/courses", h.CreateCourse)

		protected.POST("/assignments", h.CreateAssignment)
		protected.GET("/assignments", h.GetAssignments)
		protected.GET("/assignments/search", h.SearchAssignments)
		protected.POST("/assignments/:assignment_id/toggle-complete", h.ToggleComplete)

		protected.POST("/templates", h.CreateTemplate)
		protected.GET("/templates", h.GetTemplates)
		protected.POST("/templates/:template_id/expand", h.ExpandTemplate)

		protected.GET("/dashboard", h.Dashboard)

		protected.GET("/notifications", h.GetNotifications)
		protected.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		protected.POST("/notifications/:notification_id/read", h.MarkNotificationRead)
		protected.DELETE("/notifications/:notification_id", h.DeleteNotification)

		protected.GET("/preferences", h.GetPreferences)
		protected.PUT("/preferences", h.UpdatePreferences)

		protected.POST("/digest/check", h.CheckDigest)
	}
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// RequireUser rejects requests without a user id header and stores the id
// in the context under "userID".
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			log.Printf("Error: Missing %s header on %s from %s", UserIDHeader, c.FullPath(), clientIP(c))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

// clientIP prefers the proxy headers over the socket address
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return c.ClientIP()
}

// handleError logs err and writes a JSON error body
func (h *Handler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Printf("Error: %s: %v", message, err)
	c.JSON(status, gin.H{"error": message})
}

// handleStoreError maps ErrNotFound to 404 and everything else to 500
func (h *Handler) handleStoreError(c *gin.Context, what string, err error) {
	if errors.Is(err, services.ErrNotFound) {
		h.handleError(c, http.StatusNotFound, what+" not found", err)
		return
	}
	h.handleError(c, http.StatusInternalServerError, "Failed to load "+strings.ToLower(what), err)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Printf("Error: Invalid input: %v", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
}
