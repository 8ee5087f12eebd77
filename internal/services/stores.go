package services

import (
	"context"
	"errors"
	"time"

	"planner/internal/models"
)

// ErrNotFound is returned by stores when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// AssignmentStore is the assignment side of the record store
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignmentsByTemplate(ctx context.Context, templateID string) ([]models.Assignment, error)
	// ListIncompleteAssignments returns the user's assignments without CompletedAt.
	// An empty semesterID means every semester.
	ListIncompleteAssignments(ctx context.Context, userID, semesterID string) ([]models.Assignment, error)
}

// TemplateStore lists recurring templates
type TemplateStore interface {
	ListTemplates(ctx context.Context, userID string) ([]models.RecurringTemplate, error)
}

// NotificationStore is the per-user notification collection
type NotificationStore interface {
	// FindNotificationForDay returns the newest notification matching type and
	// related item created in [dayStart, dayEnd), or nil when there is none.
	FindNotificationForDay(ctx context.Context, userID string, typ models.NotificationType, relatedItemID string, dayStart, dayEnd time.Time) (*models.Notification, error)
	// CreateNotification inserts n. It reports false without error when a row
	// with the same DedupeKey already exists.
	CreateNotification(ctx context.Context, n *models.Notification) (bool, error)
	// ListNotifications returns the user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	CountNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, userID, id string) error
}

// MarkerStore holds digest markers
type MarkerStore interface {
	// GetMarker returns the marker value, or "" when unset.
	GetMarker(ctx context.Context, userID, key string) (string, error)
	// SwapMarker sets the marker to next only if it currently equals prev,
	// where "" stands for unset on either side. It reports whether the write happened.
	SwapMarker(ctx context.Context, userID, key, prev, next string) (bool, error)
}

// PreferenceStore reads user email preferences
type PreferenceStore interface {
	ListEmailSubscribers(ctx context.Context) ([]models.UserPreferences, error)
	GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error)
}
