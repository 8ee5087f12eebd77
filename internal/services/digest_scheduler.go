package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"planner/internal/models"
)

// DefaultDigestInterval is how often the scheduler evaluates its triggers
const DefaultDigestInterval = time.Minute

const (
	dailyDigestWindow  = 72 * time.Hour
	weeklyDigestWindow = 7 * 24 * time.Hour
)

// DailyDigestKey is the marker key of a user's daily digest
func DailyDigestKey(userID string) string {
	return "daily-digest-sent-" + userID
}

// WeeklyDigestKey is the marker key of a user's weekly digest
func WeeklyDigestKey(userID string) string {
	return "weekly-digest-sent-" + userID
}

// ReminderKey is the marker key of one reminder type for one assignment
func ReminderKey(assignmentID string, reminder ReminderType) string {
	return fmt.Sprintf("assignment-reminder-%s-%s", assignmentID, reminder)
}

// DigestResult reports what one check fired
type DigestResult struct {
	DailySent     bool `json:"daily_sent"`
	WeeklySent    bool `json:"weekly_sent"`
	RemindersSent int  `json:"reminders_sent"`
	Failures      int  `json:"failures"`
}

// DigestScheduler periodically sends digests and assignment reminders, each
// at most once per period. A period is claimed in the marker store before
// the mail goes out and released again if delivery fails, so the next tick
// retries while the window is still open.
type DigestScheduler struct {
	prefs       PreferenceStore
	assignments AssignmentStore
	markers     MarkerStore
	mailer      Mailer
	clock       Clock
	interval    time.Duration
	logger      *log.Logger

	mu sync.Mutex
}

func NewDigestScheduler(prefs PreferenceStore, assignments AssignmentStore, markers MarkerStore, mailer Mailer, clock Clock, interval time.Duration) *DigestScheduler {
	if interval <= 0 {
		interval = DefaultDigestInterval
	}
	return &DigestScheduler{
		prefs:       prefs,
		assignments: assignments,
		markers:     markers,
		mailer:      mailer,
		clock:       clock,
		interval:    interval,
		logger:      log.Default(),
	}
}

// WithLogger replaces the scheduler logger
func (w *DigestScheduler) WithLogger(l *log.Logger) *DigestScheduler {
	if l != nil {
		w.logger = l
	}
	return w
}

// Start runs the scheduler in the background until ctx is cancelled.
// In-flight sends are not aborted by cancellation beyond what ctx carries.
func (w *DigestScheduler) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *DigestScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick checks every user with email notifications enabled
func (w *DigestScheduler) Tick(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	subscribers, err := w.prefs.ListEmailSubscribers(ctx)
	if err != nil {
		w.logger.Printf("Error: Failed to list digest subscribers: %v", err)
		return
	}
	for _, prefs := range subscribers {
		if ctx.Err() != nil {
			return
		}
		w.CheckUser(ctx, prefs)
	}
}

// CheckUser evaluates the daily digest, weekly digest and reminder triggers
// for one user. Failures are logged and counted, never returned.
func (w *DigestScheduler) CheckUser(ctx context.Context, prefs models.UserPreferences) DigestResult {
	var result DigestResult
	if !prefs.EmailNotificationsEnabled {
		return result
	}

	now := w.clock.Now()
	assignments, err := w.assignments.ListIncompleteAssignments(ctx, prefs.UserID, "")
	if err != nil {
		w.logger.Printf("Error: Failed to load assignments for user %s: %v", prefs.UserID, err)
		result.Failures++
		return result
	}

	today := w.clock.DateString(now)

	if w.dailyDigestDue(prefs, now) {
		sent, err := w.fire(ctx, prefs.UserID, DailyDigestKey(prefs.UserID), today, func() error {
			return w.mailer.Send(ctx, DailyDigestMail, w.digestPayload(prefs, assignments, now, dailyDigestWindow))
		})
		w.record(&result, &result.DailySent, sent, err, "daily digest", prefs.UserID)
	}

	if w.weeklyDigestDue(prefs, now) {
		sent, err := w.fire(ctx, prefs.UserID, WeeklyDigestKey(prefs.UserID), today, func() error {
			return w.mailer.Send(ctx, WeeklyDigestMail, w.digestPayload(prefs, assignments, now, weeklyDigestWindow))
		})
		w.record(&result, &result.WeeklySent, sent, err, "weekly digest", prefs.UserID)
	}

	for _, a := range assignments {
		for _, reminder := range ReminderTypesDue(a.DueAt, now) {
			item := DigestItem{AssignmentID: a.ID, Name: a.Name, DueAt: a.DueAt, Priority: ClassifyPriority(a.DueAt, now)}
			payload := MailPayload{To: prefs.Email, Name: prefs.DisplayName, Item: &item, Reminder: reminder, Location: w.clock.Location()}
			// The marker value is the due instant, so a rescheduled assignment
			// is reminded again but the same deadline never is.
			period := a.DueAt.UTC().Format(time.RFC3339)
			sent, err := w.fire(ctx, prefs.UserID, ReminderKey(a.ID, reminder), period, func() error {
				return w.mailer.Send(ctx, AssignmentReminderMail, payload)
			})
			var fired bool
			w.record(&result, &fired, sent, err, string(reminder)+" reminder for "+a.ID, prefs.UserID)
			if fired {
				result.RemindersSent++
			}
		}
	}
	return result
}

func (w *DigestScheduler) record(result *DigestResult, flag *bool, sent bool, err error, what, userID string) {
	if err != nil {
		w.logger.Printf("Error: Failed to send %s to user %s: %v", what, userID, err)
		result.Failures++
		return
	}
	if sent {
		*flag = true
		w.logger.Printf("Sent %s to user %s", what, userID)
	}
}

// fire claims period for key, sends, and releases the claim when sending
// fails. It reports whether the mail went out.
func (w *DigestScheduler) fire(ctx context.Context, userID, key, period string, send func() error) (bool, error) {
	current, err := w.markers.GetMarker(ctx, userID, key)
	if err != nil {
		return false, fmt.Errorf("read marker %s: %w", key, err)
	}
	if current == period {
		return false, nil
	}
	claimed, err := w.markers.SwapMarker(ctx, userID, key, current, period)
	if err != nil {
		return false, fmt.Errorf("claim marker %s: %w", key, err)
	}
	if !claimed {
		return false, nil
	}

	if sendErr := send(); sendErr != nil {
		if _, err := w.markers.SwapMarker(ctx, userID, key, period, current); err != nil {
			w.logger.Printf("Error: Failed to release marker %s for user %s: %v", key, userID, err)
		}
		return false, sendErr
	}
	return true, nil
}

func (w *DigestScheduler) dailyDigestDue(prefs models.UserPreferences, now time.Time) bool {
	return prefs.DigestFrequency == models.DailyDigest && pastTimeOfDay(now, prefs.DigestTime)
}

func (w *DigestScheduler) weeklyDigestDue(prefs models.UserPreferences, now time.Time) bool {
	if prefs.DigestFrequency != models.WeeklyDigest {
		return false
	}
	day, err := models.ParseWeekday(prefs.WeeklyDigestDay)
	if err != nil {
		w.logger.Printf("Warning: User %s has an invalid weekly digest day: %v", prefs.UserID, err)
		return false
	}
	return now.Weekday() == day && pastTimeOfDay(now, prefs.DigestTime)
}

// pastTimeOfDay reports whether now is at or after the HH:MM clock on its own day
func pastTimeOfDay(now time.Time, clock string) bool {
	hour, minute, err := models.ParseClock(clock)
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	return !now.Before(time.Date(y, m, d, hour, minute, 0, 0, now.Location()))
}

func (w *DigestScheduler) digestPayload(prefs models.UserPreferences, assignments []models.Assignment, now time.Time, window time.Duration) MailPayload {
	items := make([]DigestItem, 0, len(assignments))
	for _, a := range assignments {
		if a.DueAt.Sub(now) > window {
			continue
		}
		items = append(items, DigestItem{
			AssignmentID: a.ID,
			Name:         a.Name,
			DueAt:        a.DueAt,
			Priority:     ClassifyPriority(a.DueAt, now),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueAt.Before(items[j].DueAt) })
	return MailPayload{To: prefs.Email, Name: prefs.DisplayName, Items: items, Location: w.clock.Location()}
}

// ReminderTypesDue lists the reminder windows dueAt falls in at now:
// exactly 3 whole days left, 20 to 28 whole hours left, or 150 to 210 whole
// minutes left. Past deadlines get none.
func ReminderTypesDue(dueAt, now time.Time) []ReminderType {
	left := dueAt.Sub(now)
	if left <= 0 {
		return nil
	}
	minutes := int(left / time.Minute)
	hours := int(left / time.Hour)
	days := int(left / (24 * time.Hour))

	var due []ReminderType
	if days == 3 {
		due = append(due, ReminderThreeDays)
	}
	if hours >= 20 && hours <= 28 {
		due = append(due, ReminderOneDay)
	}
	if minutes >= 150 && minutes <= 210 {
		due = append(due, ReminderThreeHours)
	}
	return due
}
