package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentType describes what kind of work an assignment is
type AssignmentType string

const (
	HomeworkAssignment AssignmentType = "homework"
	QuizAssignment     AssignmentType = "quiz"
	ExamAssignment     AssignmentType = "exam"
	ProjectAssignment  AssignmentType = "project"
	LabAssignment      AssignmentType = "lab"
	OtherAssignment    AssignmentType = "other"
)

// Assignment is a concrete, due-dated piece of work belonging to a course
type Assignment struct {
	ID                  string         `gorm:"primaryKey;size:36" json:"id"`
	UserID              string         `gorm:"size:128;not null;index" json:"user_id"`
	CourseID            string         `gorm:"size:36;not null;index" json:"course_id"`
	Name                string         `gorm:"size:255;not null" json:"name"`
	DueAt               time.Time      `gorm:"not null;index" json:"due_at"`
	Type                AssignmentType `gorm:"size:20;not null;default:homework" json:"type"`
	GradeWeight         *float64       `json:"grade_weight,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at"`
	IsRecurring         bool           `gorm:"not null;default:false" json:"is_recurring"`
	RecurringTemplateID *string        `gorm:"size:36;index" json:"recurring_template_id,omitempty"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

// BeforeCreate assigns an ID and creation timestamps
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	return nil
}

// BeforeSave stores instants in UTC so range queries compare consistently
func (a *Assignment) BeforeSave(tx *gorm.DB) error {
	a.DueAt = a.DueAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if a.CompletedAt != nil {
		completed := a.CompletedAt.UTC()
		a.CompletedAt = &completed
	}
	return nil
}

// IsCompleted reports whether the assignment has been marked done
func (a *Assignment) IsCompleted() bool {
	return a.CompletedAt != nil
}

// ToggleComplete flips the completion state. A completion time earlier than
// CreatedAt is clamped so CompletedAt never precedes creation.
func (a *Assignment) ToggleComplete(now time.Time) {
	if a.CompletedAt != nil {
		a.CompletedAt = nil
		a.UpdatedAt = now
		return
	}
	completed := now
	if !a.CreatedAt.IsZero() && completed.Before(a.CreatedAt) {
		completed = a.CreatedAt
	}
	a.CompletedAt = &completed
	a.UpdatedAt = now
}

// TableName specifies the table name for the Assignment model
func (Assignment) TableName() string {
	return "assignment"
}

// CreateAssignmentRequest represents the data needed to create an assignment
type CreateAssignmentRequest struct {
	CourseID    string         `json:"course_id" binding:"required"`
	Name        string         `json:"name" binding:"required,max=255"`
	DueAt       time.Time      `json:"due_at" binding:"required"`
	Type        AssignmentType `json:"type" binding:"omitempty,oneof=homework quiz exam project lab other"`
	GradeWeight *float64       `json:"grade_weight" binding:"omitempty,min=0,max=100"`
}
