package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"planner/internal/models"
)

const (
	DefaultMaxUnread      = 10
	DefaultKeepRead       = 5
	DefaultSweepThreshold = 15
)

// RetentionPolicy bounds how many notifications a user keeps
type RetentionPolicy struct {
	MaxUnread      int // most recent unread notifications kept
	KeepRead       int // most recent read notifications kept
	SweepThreshold int // inbox size above which loading the inbox sweeps first
}

// DefaultRetentionPolicy keeps 10 unread and 5 read notifications
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxUnread:      DefaultMaxUnread,
		KeepRead:       DefaultKeepRead,
		SweepThreshold: DefaultSweepThreshold,
	}
}

// withDefaults treats the zero policy as unset and returns the defaults.
// A zero SweepThreshold also falls back to its default.
func (p RetentionPolicy) withDefaults() RetentionPolicy {
	if p == (RetentionPolicy{}) {
		return DefaultRetentionPolicy()
	}
	if p.MaxUnread < 0 {
		p.MaxUnread = 0
	}
	if p.KeepRead < 0 {
		p.KeepRead = 0
	}
	if p.SweepThreshold <= 0 {
		p.SweepThreshold = DefaultSweepThreshold
	}
	return p
}

// SelectForDeletion returns the ids the policy does not retain. The newest
// MaxUnread unread and newest KeepRead read notifications survive.
func SelectForDeletion(notifications []models.Notification, policy RetentionPolicy) []string {
	sorted := make([]models.Notification, len(notifications))
	copy(sorted, notifications)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var doomed []string
	unread, read := 0, 0
	for _, n := range sorted {
		if n.IsRead {
			read++
			if read > policy.KeepRead {
				doomed = append(doomed, n.ID)
			}
			continue
		}
		unread++
		if unread > policy.MaxUnread {
			doomed = append(doomed, n.ID)
		}
	}
	return doomed
}

// Sweep deletes what the retention policy does not keep. Deletes are
// independent; failed ones are left for the next sweep and reported joined.
func (s *NotificationService) Sweep(ctx context.Context, userID string) (int, error) {
	notifications, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list notifications: %w", err)
	}

	deleted := 0
	var errs []error
	for _, id := range SelectForDeletion(notifications, s.policy) {
		if err := s.store.DeleteNotification(ctx, userID, id); err != nil {
			errs = append(errs, fmt.Errorf("delete notification %s: %w", id, err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Printf("Retention sweep removed %d notifications for user %s", deleted, userID)
	}
	return deleted, errors.Join(errs...)
}
