package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType classifies an in-app notification
type NotificationType string

const (
	OverdueNotification       NotificationType = "overdue"
	DeadlineTodayNotification NotificationType = "deadline-today"
	DeadlineSoonNotification  NotificationType = "deadline-soon"
	OtherNotification         NotificationType = "other"
)

// RelatedAssignment is the RelatedItemType of deadline notifications
const RelatedAssignment = "assignment"

// Notification is a user-facing inbox entry.
// At most one row exists per (user, type, related item, calendar day of CreatedAt);
// DedupeKey enforces this for deadline notifications.
type Notification struct {
	ID              string           `gorm:"primaryKey;size:36" json:"id"`
	UserID          string           `gorm:"size:128;not null;index:idx_notification_user_created" json:"user_id"`
	Type            NotificationType `gorm:"size:20;not null" json:"type"`
	Message         string           `gorm:"size:500;not null" json:"message"`
	RelatedItemID   string           `gorm:"size:36;index" json:"related_item_id"`
	RelatedItemType string           `gorm:"size:20" json:"related_item_type"`
	IsRead          bool             `gorm:"not null;default:false" json:"is_read"`
	DedupeKey       *string          `gorm:"size:128;uniqueIndex" json:"-"`
	Payload         datatypes.JSON   `json:"payload,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;index:idx_notification_user_created" json:"created_at"`
}

// BeforeCreate assigns an ID and creation time
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return nil
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notification"
}

// DigestMarker records the last period a digest or reminder was sent for.
// Keys look like "daily-digest-sent-{userID}" or "assignment-reminder-{id}-{type}".
type DigestMarker struct {
	UserID    string    `gorm:"primaryKey;size:128" json:"user_id"`
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"size:64;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the DigestMarker model
func (DigestMarker) TableName() string {
	return "digest_marker"
}
