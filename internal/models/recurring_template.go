package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidWeekday = errors.New("invalid day of week")
	ErrInvalidClock   = errors.New("invalid time of day, expected HH:MM")
)

// RecurrencePattern is the stepping unit of a recurring template
type RecurrencePattern string

const (
	WeeklyPattern   RecurrencePattern = "weekly"
	BiweeklyPattern RecurrencePattern = "biweekly"
	MonthlyPattern  RecurrencePattern = "monthly"
	CustomPattern   RecurrencePattern = "custom"
)

// OccurrencePlaceholder is replaced with the 1-based occurrence index in NamePattern
const OccurrencePlaceholder = "{n}"

// RecurringTemplate describes assignments that repeat on a fixed weekday.
// Deleting a template leaves the assignments it generated in place.
type RecurringTemplate struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	UserID      string            `gorm:"size:128;not null;index" json:"user_id"`
	CourseID    string            `gorm:"size:36;not null;index" json:"course_id"`
	NamePattern string            `gorm:"size:255;not null" json:"name_pattern"`
	DayOfWeek   string            `gorm:"size:10;not null" json:"day_of_week"`
	Time        string            `gorm:"size:5;not null" json:"time"`
	Pattern     RecurrencePattern `gorm:"size:10;not null" json:"pattern"`
	StartDate   time.Time         `gorm:"type:date;not null" json:"start_date"`
	EndDate     time.Time         `gorm:"type:date;not null" json:"end_date"`
	Type        AssignmentType    `gorm:"size:20;not null;default:homework" json:"type"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

// BeforeCreate assigns an ID and creation timestamps
func (t *RecurringTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	return nil
}

// BeforeSave keeps only the calendar date of StartDate and EndDate
func (t *RecurringTemplate) BeforeSave(tx *gorm.DB) error {
	t.StartDate = DateOnly(t.StartDate)
	t.EndDate = DateOnly(t.EndDate)
	return nil
}

// DateOnly returns midnight UTC of the calendar date t falls on in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TableName specifies the table name for the RecurringTemplate model
func (RecurringTemplate) TableName() string {
	return "recurring_template"
}

// Weekday parses DayOfWeek
func (t RecurringTemplate) Weekday() (time.Weekday, error) {
	return ParseWeekday(t.DayOfWeek)
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or abbreviated English weekday names in any case,
// or a number 0-6 with 0 meaning Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if day, ok := weekdayNames[key]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return time.Sunday, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ParseClock parses an HH:MM time of day
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// CreateTemplateRequest represents the data needed to create a recurring template
type CreateTemplateRequest struct {
	CourseID    string            `json:"course_id" binding:"required"`
	NamePattern string            `json:"name_pattern" binding:"required,max=255"`
	DayOfWeek   string            `json:"day_of_week" binding:"required"`
	Time        string            `json:"time" binding:"required"`
	Pattern     RecurrencePattern `json:"pattern" binding:"required,oneof=weekly biweekly monthly custom"`
	StartDate   time.Time         `json:"start_date" binding:"required"`
	EndDate     time.Time         `json:"end_date" binding:"required"`
	Type        AssignmentType    `json:"type" binding:"omitempty,oneof=homework quiz exam project lab other"`
}

// Validate checks the fields binding tags cannot express
func (r CreateTemplateRequest) Validate() error {
	if _, err := ParseWeekday(r.DayOfWeek); err != nil {
		return err
	}
	if _, _, err := ParseClock(r.Time); err != nil {
		return err
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}
