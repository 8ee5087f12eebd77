package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"planner/internal/models"
	"planner/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const searchCandidateLimit = 200

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Store persists planner records with gorm. It satisfies every store
// interface the services package depends on.
type Store struct {
	db *gorm.DB
}

var (
	_ services.AssignmentStore       = (*Store)(nil)
	_ services.TemplateStore         = (*Store)(nil)
	_ services.NotificationStore     = (*Store)(nil)
	_ services.MarkerStore           = (*Store)(nil)
	_ services.PreferenceStore       = (*Store)(nil)
	_ services.AssignmentSearchStore = (*Store)(nil)
)

// NewStore wraps an open database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrNotFound
	}
	return err
}

// CreateSemester inserts a semester. An active semester deactivates the
// user's others in the same transaction.
func (s *Store) CreateSemester(ctx context.Context, semester *models.Semester) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if semester.IsActive {
			if err := tx.Model(&models.Semester{}).
				Where("user_id = ? AND is_active = ?", semester.UserID, true).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate semesters: %w", err)
			}
		}
		return tx.Create(semester).Error
	})
}

// ListSemesters returns the user's semesters with their courses, latest start first
func (s *Store) ListSemesters(ctx context.Context, userID string) ([]models.Semester, error) {
	var semesters []models.Semester
	err := s.db.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&semesters).Error
	return semesters, err
}

// GetSemester loads one of the user's semesters
func (s *Store) GetSemester(ctx context.Context, userID, id string) (*models.Semester, error) {
	var semester models.Semester
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&semester).Error; err != nil {
		return nil, notFound(err)
	}
	return &semester, nil
}

// ActiveSemester returns the user's active semester or ErrNotFound
func (s *Store) ActiveSemester(ctx context.Context, userID string) (*models.Semester, error) {
	var semester models.Semester
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date DESC").
		First(&semester).Error; err != nil {
		return nil, notFound(err)
	}
	return &semester, nil
}

// CreateCourse inserts a course
func (s *Store) CreateCourse(ctx context.Context, course *models.Course) error {
	return s.db.WithContext(ctx).Create(course).Error
}

// GetCourse loads one of the user's courses
func (s *Store) GetCourse(ctx context.Context, userID, id string) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&course).Error; err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}

// CreateAssignment inserts an assignment
func (s *Store) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// GetAssignment loads one of the user's assignments
func (s *Store) GetAssignment(ctx context.Context, userID, id string) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// SaveAssignment writes every field of an existing assignment
func (s *Store) SaveAssignment(ctx context.Context, a *models.Assignment) error {
	return s.db.WithContext(ctx).Save(a).Error
}

func (s *Store) assignmentScope(ctx context.Context, userID, semesterID string) *gorm.DB {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if semesterID != "" {
		courses := s.db.Model(&models.Course{}).Select("id").Where("semester_id = ?", semesterID)
		query = query.Where("course_id IN (?)", courses)
	}
	return query
}

// ListAssignments returns the user's assignments ordered by due date
func (s *Store) ListAssignments(ctx context.Context, userID, semesterID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.assignmentScope(ctx, userID, semesterID).Order("due_at ASC").Find(&assignments).Error
	return assignments, err
}

// ListIncompleteAssignments implements services.AssignmentStore
func (s *Store) ListIncompleteAssignments(ctx context.Context, userID, semesterID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.assignmentScope(ctx, userID, semesterID).
		Where("completed_at IS NULL").
		Order("due_at ASC").
		Find(&assignments).Error
	return assignments, err
}

// SearchAssignments implements services.AssignmentSearchStore
func (s *Store) SearchAssignments(ctx context.Context, userID, term string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(name) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("due_at ASC").
		Limit(searchCandidateLimit).
		Find(&assignments).Error
	return assignments, err
}

// ListAssignmentsByTemplate implements services.AssignmentStore
func (s *Store) ListAssignmentsByTemplate(ctx context.Context, templateID string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Where("recurring_template_id = ?", templateID).
		Order("due_at ASC").
		Find(&assignments).Error
	return assignments, err
}

// CreateTemplate inserts a recurring template
func (s *Store) CreateTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// GetTemplate loads one of the user's templates
func (s *Store) GetTemplate(ctx context.Context, userID, id string) (*models.RecurringTemplate, error) {
	var t models.RecurringTemplate
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListTemplates implements services.TemplateStore
func (s *Store) ListTemplates(ctx context.Context, userID string) ([]models.RecurringTemplate, error) {
	var templates []models.RecurringTemplate
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&templates).Error
	return templates, err
}

// FindNotificationForDay implements services.NotificationStore
func (s *Store) FindNotificationForDay(ctx context.Context, userID string, typ models.NotificationType, relatedItemID string, dayStart, dayEnd time.Time) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND related_item_id = ?", userID, typ, relatedItemID).
		Where("created_at >= ? AND created_at < ?", dayStart.UTC(), dayEnd.UTC()).
		Order("created_at DESC").
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNotification implements services.NotificationStore
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListNotifications implements services.NotificationStore
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// CountNotifications implements services.NotificationStore
func (s *Store) CountNotifications(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// MarkNotificationRead implements services.NotificationStore
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead implements services.NotificationStore
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// DeleteNotification implements services.NotificationStore
func (s *Store) DeleteNotification(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// markerID builds a quoted column condition, since key is an SQL keyword
func markerID(userID, key string) map[string]interface{} {
	return map[string]interface{}{"user_id": userID, "key": key}
}

// GetMarker implements services.MarkerStore
func (s *Store) GetMarker(ctx context.Context, userID, key string) (string, error) {
	var marker models.DigestMarker
	err := s.db.WithContext(ctx).Where(markerID(userID, key)).First(&marker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return marker.Value, nil
}

// SwapMarker implements services.MarkerStore as a single conditional write
func (s *Store) SwapMarker(ctx context.Context, userID, key, prev, next string) (bool, error) {
	db := s.db.WithContext(ctx)
	var result *gorm.DB
	switch {
	case prev == next:
		current, err := s.GetMarker(ctx, userID, key)
		return err == nil && current == prev, err
	case prev == "":
		result = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DigestMarker{
			UserID:    userID,
			Key:       key,
			Value:     next,
			UpdatedAt: time.Now().UTC(),
		})
	case next == "":
		result = db.Where(markerID(userID, key)).Where("value = ?", prev).Delete(&models.DigestMarker{})
	default:
		result = db.Model(&models.DigestMarker{}).
			Where(markerID(userID, key)).Where("value = ?", prev).
			Updates(map[string]interface{}{"value": next, "updated_at": time.Now().UTC()})
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListEmailSubscribers implements services.PreferenceStore
func (s *Store) ListEmailSubscribers(ctx context.Context) ([]models.UserPreferences, error) {
	var prefs []models.UserPreferences
	err := s.db.WithContext(ctx).
		Where("email_notifications_enabled = ? AND email <> ?", true, "").
		Order("user_id ASC").
		Find(&prefs).Error
	return prefs, err
}

// GetPreferences implements services.PreferenceStore
func (s *Store) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	var prefs models.UserPreferences
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return models.UserPreferences{}, notFound(err)
	}
	return prefs, nil
}

// SavePreferences creates or replaces the user's preferences
func (s *Store) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(prefs).Error
}
