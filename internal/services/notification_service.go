package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"planner/internal/models"
)

// DaysUntilDue counts calendar days from today to the due date, both taken
// at local midnight. A deadline later today is 0, yesterday is -1.
func DaysUntilDue(dueAt, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return calendarDaysBetween(now.In(loc), dueAt.In(loc))
}

// DeadlineNotificationType picks the notification a deadline warrants.
// Only overdue, 0, 1 and 3 days out produce one; other distances report false.
func DeadlineNotificationType(daysUntilDue int) (models.NotificationType, bool) {
	switch {
	case daysUntilDue < 0:
		return models.OverdueNotification, true
	case daysUntilDue == 0:
		return models.DeadlineTodayNotification, true
	case daysUntilDue == 1, daysUntilDue == 3:
		return models.DeadlineSoonNotification, true
	default:
		return "", false
	}
}

func deadlineMessage(name string, daysUntilDue int) string {
	switch {
	case daysUntilDue < 0:
		return fmt.Sprintf("%s is overdue", name)
	case daysUntilDue == 0:
		return fmt.Sprintf("%s is due today", name)
	case daysUntilDue == 1:
		return fmt.Sprintf("%s is due tomorrow", name)
	default:
		return fmt.Sprintf("%s is due in %d days", name, daysUntilDue)
	}
}

type deadlinePayload struct {
	AssignmentID string    `json:"assignment_id"`
	CourseID     string    `json:"course_id"`
	DueAt        time.Time `json:"due_at"`
	DaysUntilDue int       `json:"days_until_due"`
	Priority     Priority  `json:"priority"`
}

// MaterializeResult summarizes one materializer run
type MaterializeResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
}

// NotificationService owns deadline notification materialization, the
// inbox operations and the retention sweep that follows them.
type NotificationService struct {
	store       NotificationStore
	assignments AssignmentStore
	clock       Clock
	policy      RetentionPolicy
	logger      *log.Logger
}

func NewNotificationService(store NotificationStore, assignments AssignmentStore, clock Clock, policy RetentionPolicy) *NotificationService {
	return &NotificationService{
		store:       store,
		assignments: assignments,
		clock:       clock,
		policy:      policy.withDefaults(),
		logger:      log.Default(),
	}
}

// WithLogger replaces the service logger
func (s *NotificationService) WithLogger(l *log.Logger) *NotificationService {
	if l != nil {
		s.logger = l
	}
	return s
}

// MaterializeDeadlines makes sure each incomplete assignment of the semester
// has today's deadline notification. Running it again the same day creates
// nothing new. Per-assignment failures are logged and joined.
func (s *NotificationService) MaterializeDeadlines(ctx context.Context, userID, semesterID string) (MaterializeResult, error) {
	var result MaterializeResult

	assignments, err := s.assignments.ListIncompleteAssignments(ctx, userID, semesterID)
	if err != nil {
		return result, fmt.Errorf("list incomplete assignments: %w", err)
	}

	var errs []error
	for _, a := range assignments {
		id, created, err := s.EnsureDeadlineNotification(ctx, userID, a)
		switch {
		case err != nil:
			s.logger.Printf("Error: Failed to materialize notification for assignment %s: %v", a.ID, err)
			errs = append(errs, err)
		case id == "":
			result.Skipped++
		case created:
			result.Created++
		default:
			result.Existing++
		}
	}
	return result, errors.Join(errs...)
}

// EnsureDeadlineNotification creates today's notification for a, unless the
// deadline warrants none. It returns the id of the notification that now
// exists and whether it was created by this call.
func (s *NotificationService) EnsureDeadlineNotification(ctx context.Context, userID string, a models.Assignment) (string, bool, error) {
	if a.IsCompleted() {
		return "", false, nil
	}
	now := s.clock.Now()
	days := DaysUntilDue(a.DueAt, now, s.clock.Location())
	notifType, ok := DeadlineNotificationType(days)
	if !ok {
		return "", false, nil
	}

	payload, err := json.Marshal(deadlinePayload{
		AssignmentID: a.ID,
		CourseID:     a.CourseID,
		DueAt:        a.DueAt,
		DaysUntilDue: days,
		Priority:     ClassifyPriority(a.DueAt, now),
	})
	if err != nil {
		return "", false, fmt.Errorf("encode notification payload: %w", err)
	}

	return s.CreateOnce(ctx, models.Notification{
		UserID:          userID,
		Type:            notifType,
		Message:         deadlineMessage(a.Name, days),
		RelatedItemID:   a.ID,
		RelatedItemType: models.RelatedAssignment,
		Payload:         payload,
	})
}

// CreateOnce inserts n unless a notification with the same type and related
// item was already created today, in which case the existing id is returned.
func (s *NotificationService) CreateOnce(ctx context.Context, n models.Notification) (string, bool, error) {
	now := s.clock.Now()
	dayStart := s.clock.StartOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := s.store.FindNotificationForDay(ctx, n.UserID, n.Type, n.RelatedItemID, dayStart, dayEnd)
	if err != nil {
		return "", false, fmt.Errorf("look up existing notification: %w", err)
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	if n.RelatedItemID != "" {
		key := fmt.Sprintf("%s:%s:%s", n.Type, n.RelatedItemID, s.clock.DateString(now))
		n.DedupeKey = &key
	}
	n.CreatedAt = now
	inserted, err := s.store.CreateNotification(ctx, &n)
	if err != nil {
		return "", false, fmt.Errorf("create notification: %w", err)
	}
	if inserted {
		return n.ID, true, nil
	}

	// Lost a race with a concurrent insert for the same day.
	existing, err = s.store.FindNotificationForDay(ctx, n.UserID, n.Type, n.RelatedItemID, dayStart, dayEnd)
	if err != nil {
		return "", false, fmt.Errorf("look up existing notification: %w", err)
	}
	if existing == nil {
		return "", false, fmt.Errorf("notification %s vanished after conflict: %w", *n.DedupeKey, ErrNotFound)
	}
	return existing.ID, false, nil
}

// Inbox returns the user's notifications, newest first. When the user holds
// more than the sweep threshold a retention sweep runs first.
func (s *NotificationService) Inbox(ctx context.Context, userID string) ([]models.Notification, error) {
	count, err := s.store.CountNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	if count > int64(s.policy.SweepThreshold) {
		if _, err := s.Sweep(ctx, userID); err != nil {
			s.logger.Printf("Warning: Retention sweep for user %s incomplete: %v", userID, err)
		}
	}
	return s.store.ListNotifications(ctx, userID)
}

// MarkRead flags one notification read and sweeps
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkNotificationRead(ctx, userID, id); err != nil {
		return err
	}
	s.sweepAfterMutation(ctx, userID)
	return nil
}

// MarkAllRead flags every notification of the user read and sweeps
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return err
	}
	s.sweepAfterMutation(ctx, userID)
	return nil
}

// Delete removes one notification on the user's request
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteNotification(ctx, userID, id)
}

func (s *NotificationService) sweepAfterMutation(ctx context.Context, userID string) {
	if _, err := s.Sweep(ctx, userID); err != nil {
		s.logger.Printf("Warning: Retention sweep for user %s incomplete: %v", userID, err)
	}
}
