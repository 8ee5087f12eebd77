package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Semester groups a user's courses for one term
type Semester struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:128;not null;index" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	Courses   []Course  `gorm:"foreignKey:SemesterID" json:"courses,omitempty"`
}

// BeforeCreate assigns an ID and creation time
func (s *Semester) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.StartDate = DateOnly(s.StartDate)
	s.EndDate = DateOnly(s.EndDate)
	return nil
}

// TableName specifies the table name for the Semester model
func (Semester) TableName() string {
	return "semester"
}

// Course belongs to a semester and owns assignments and templates
type Course struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:128;not null;index" json:"user_id"`
	SemesterID string    `gorm:"size:36;not null;index" json:"semester_id"`
	Name       string    `gorm:"size:150;not null" json:"name"`
	Code       string    `gorm:"size:20" json:"code"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate assigns an ID and creation time
func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// TableName specifies the table name for the Course model
func (Course) TableName() string {
	return "course"
}

// CreateSemesterRequest represents the data needed to create a semester
type CreateSemesterRequest struct {
	Name      string    `json:"name" binding:"required,max=100"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required,gtfield=StartDate"`
	IsActive  bool      `json:"is_active"`
}

// CreateCourseRequest represents the data needed to create a course
type CreateCourseRequest struct {
	Name string `json:"name" binding:"required,max=150"`
	Code string `json:"code" binding:"max=20"`
}
