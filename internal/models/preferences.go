package models

import "time"

// DigestFrequency controls which digest email a user receives
type DigestFrequency string

const (
	DailyDigest  DigestFrequency = "daily"
	WeeklyDigest DigestFrequency = "weekly"
	NoDigest     DigestFrequency = "never"
)

// UserPreferences holds the email settings the digest scheduler reads
type UserPreferences struct {
	UserID                    string          `gorm:"primaryKey;size:128" json:"user_id"`
	Email                     string          `gorm:"size:255" json:"email"`
	DisplayName               string          `gorm:"size:100" json:"display_name"`
	EmailNotificationsEnabled bool            `gorm:"not null;default:false" json:"email_notifications_enabled"`
	DigestFrequency           DigestFrequency `gorm:"size:10;not null;default:daily" json:"digest_frequency"`
	DigestTime                string          `gorm:"size:5;not null;default:'08:00'" json:"digest_time"`
	WeeklyDigestDay           string          `gorm:"size:10;not null;default:monday" json:"weekly_digest_day"`
	UpdatedAt                 time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for the UserPreferences model
func (UserPreferences) TableName() string {
	return "user_preferences"
}

// DefaultPreferences returns the settings used before a user saves any
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:          userID,
		DigestFrequency: DailyDigest,
		DigestTime:      "08:00",
		WeeklyDigestDay: "monday",
	}
}

// UpdatePreferencesRequest represents the data needed to update preferences
type UpdatePreferencesRequest struct {
	Email                     string          `json:"email" binding:"omitempty,email"`
	DisplayName               string          `json:"display_name" binding:"max=100"`
	EmailNotificationsEnabled bool            `json:"email_notifications_enabled"`
	DigestFrequency           DigestFrequency `json:"digest_frequency" binding:"required,oneof=daily weekly never"`
	DigestTime                string          `json:"digest_time" binding:"required"`
	WeeklyDigestDay           string          `json:"weekly_digest_day"`
}

// Validate checks the fields binding tags cannot express
func (r UpdatePreferencesRequest) Validate() error {
	if _, _, err := ParseClock(r.DigestTime); err != nil {
		return err
	}
	if r.DigestFrequency == WeeklyDigest {
		if _, err := ParseWeekday(r.WeeklyDigestDay); err != nil {
			return err
		}
	}
	return nil
}
