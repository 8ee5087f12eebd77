package database

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"planner/internal/models"
	"planner/internal/services"

	"github.com/glebarez/sqlite"
)

// newTestStore opens a private in-memory SQLite database
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func seedCourse(t *testing.T, s *Store, userID string, active bool) (*models.Semester, *models.Course) {
	t.Helper()
	ctx := context.Background()
	semester := &models.Semester{
		UserID:    userID,
		Name:      "Spring",
		StartDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		IsActive:  active,
	}
	if err := s.CreateSemester(ctx, semester); err != nil {
		t.Fatalf("create semester: %v", err)
	}
	course := &models.Course{UserID: userID, SemesterID: semester.ID, Name: "Algorithms", Code: "CS301"}
	if err := s.CreateCourse(ctx, course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return semester, course
}

func TestStore_SwapMarker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	value, err := s.GetMarker(ctx, "u1", "daily-digest-sent-u1")
	if err != nil || value != "" {
		t.Fatalf("expected unset marker, got %q (%v)", value, err)
	}

	ok, err := s.SwapMarker(ctx, "u1", "daily-digest-sent-u1", "", "2024-01-15")
	if err != nil || !ok {
		t.Fatalf("first claim should win: %v %v", ok, err)
	}
	ok, err = s.SwapMarker(ctx, "u1", "daily-digest-sent-u1", "", "2024-01-15")
	if err != nil || ok {
		t.Fatalf("second claim from unset should lose: %v %v", ok, err)
	}

	ok, err = s.SwapMarker(ctx, "u1", "daily-digest-sent-u1", "2024-01-14", "2024-01-16")
	if err != nil || ok {
		t.Fatalf("swap from stale value should lose: %v %v", ok, err)
	}
	ok, err = s.SwapMarker(ctx, "u1", "daily-digest-sent-u1", "2024-01-15", "2024-01-16")
	if err != nil || !ok {
		t.Fatalf("swap from current value should win: %v %v", ok, err)
	}

	ok, err = s.SwapMarker(ctx, "u1", "daily-digest-sent-u1", "2024-01-16", "")
	if err != nil || !ok {
		t.Fatalf("release should win: %v %v", ok, err)
	}
	if value, _ := s.GetMarker(ctx, "u1", "daily-digest-sent-u1"); value != "" {
		t.Errorf("expected marker removed, got %q", value)
	}

	// Markers are per user.
	if ok, _ := s.SwapMarker(ctx, "u2", "daily-digest-sent-u1", "", "x"); !ok {
		t.Error("expected another user's marker to be independent")
	}
}

func TestStore_CreateNotificationDedupe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := "overdue:a1:2024-01-15"
	first := &models.Notification{UserID: "u1", Type: models.OverdueNotification, Message: "HW is overdue", RelatedItemID: "a1", DedupeKey: &key}
	inserted, err := s.CreateNotification(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("expected first insert, got %v %v", inserted, err)
	}

	dup := key
	second := &models.Notification{UserID: "u1", Type: models.OverdueNotification, Message: "HW is overdue", RelatedItemID: "a1", DedupeKey: &dup}
	inserted, err = s.CreateNotification(ctx, second)
	if err != nil {
		t.Fatalf("conflicting insert should not error: %v", err)
	}
	if inserted {
		t.Error("expected conflicting insert to be ignored")
	}

	// Rows without a dedupe key never conflict.
	for i := 0; i < 2; i++ {
		n := &models.Notification{UserID: "u1", Type: models.OtherNotification, Message: "note"}
		if ok, err := s.CreateNotification(ctx, n); err != nil || !ok {
			t.Fatalf("plain insert %d failed: %v %v", i, ok, err)
		}
	}

	count, err := s.CountNotifications(ctx, "u1")
	if err != nil || count != 3 {
		t.Errorf("expected 3 notifications, got %d (%v)", count, err)
	}
}

func TestStore_FindNotificationForDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	n := &models.Notification{
		UserID:        "u1",
		Type:          models.DeadlineSoonNotification,
		Message:       "HW is due tomorrow",
		RelatedItemID: "a1",
		CreatedAt:     created,
	}
	if _, err := s.CreateNotification(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	dayStart := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	found, err := s.FindNotificationForDay(ctx, "u1", models.DeadlineSoonNotification, "a1", dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil || found == nil || found.ID != n.ID {
		t.Fatalf("expected to find %s, got %+v (%v)", n.ID, found, err)
	}

	nextDay := dayStart.AddDate(0, 0, 1)
	found, err = s.FindNotificationForDay(ctx, "u1", models.DeadlineSoonNotification, "a1", nextDay, nextDay.AddDate(0, 0, 1))
	if err != nil || found != nil {
		t.Errorf("expected nothing on the next day, got %+v (%v)", found, err)
	}

	found, _ = s.FindNotificationForDay(ctx, "u1", models.OverdueNotification, "a1", dayStart, dayStart.AddDate(0, 0, 1))
	if found != nil {
		t.Error("type must be part of the match")
	}
}

func TestStore_NotificationMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := &models.Notification{UserID: "u1", Type: models.OtherNotification, Message: "hello"}
	if _, err := s.CreateNotification(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.MarkNotificationRead(ctx, "u2", n.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("other users cannot mark a notification read, got %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	list, _ := s.ListNotifications(ctx, "u1")
	if len(list) != 1 || !list[0].IsRead {
		t.Fatalf("expected one read notification, got %+v", list)
	}

	if err := s.DeleteNotification(ctx, "u1", n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteNotification(ctx, "u1", n.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_ListIncompleteAssignmentsBySemester(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, springCourse := seedCourse(t, s, "u1", true)
	_, fallCourse := seedCourse(t, s, "u1", false)

	due := time.Date(2024, 2, 1, 23, 59, 0, 0, time.UTC)
	done := due.Add(-time.Hour)
	for _, a := range []*models.Assignment{
		{UserID: "u1", CourseID: springCourse.ID, Name: "Spring HW", DueAt: due},
		{UserID: "u1", CourseID: springCourse.ID, Name: "Spring done", DueAt: due, CompletedAt: &done},
		{UserID: "u1", CourseID: fallCourse.ID, Name: "Fall HW", DueAt: due.Add(time.Hour)},
	} {
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	spring, err := s.ListIncompleteAssignments(ctx, "u1", springCourse.SemesterID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(spring) != 1 || spring[0].Name != "Spring HW" {
		t.Errorf("expected only the open spring assignment, got %+v", spring)
	}

	all, _ := s.ListIncompleteAssignments(ctx, "u1", "")
	if len(all) != 2 {
		t.Errorf("expected 2 open assignments across semesters, got %d", len(all))
	}

	other, _ := s.ListIncompleteAssignments(ctx, "u2", "")
	if len(other) != 0 {
		t.Errorf("expected no assignments for another user, got %d", len(other))
	}
}

func TestStore_ActiveSemester(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ActiveSemester(ctx, "u1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any semester, got %v", err)
	}

	first, _ := seedCourse(t, s, "u1", true)
	second, _ := seedCourse(t, s, "u1", true)

	active, err := s.ActiveSemester(ctx, "u1")
	if err != nil {
		t.Fatalf("active semester: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("expected newest active semester %s, got %s", second.ID, active.ID)
	}
	reloaded, _ := s.GetSemester(ctx, "u1", first.ID)
	if reloaded.IsActive {
		t.Error("creating an active semester should deactivate the previous one")
	}

	semesters, err := s.ListSemesters(ctx, "u1")
	if err != nil || len(semesters) != 2 || len(semesters[0].Courses) != 1 {
		t.Errorf("expected 2 semesters with courses, got %+v (%v)", semesters, err)
	}
}

func TestStore_TemplatesAndPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, s, "u1", true)

	tmpl := &models.RecurringTemplate{
		UserID:      "u1",
		CourseID:    course.ID,
		NamePattern: "Homework {n}",
		DayOfWeek:   "monday",
		Time:        "23:59",
		Pattern:     models.WeeklyPattern,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := s.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	loaded, err := s.GetTemplate(ctx, "u1", tmpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got := loaded.StartDate.Format(time.DateOnly); got != "2024-01-01" {
		t.Errorf("start date round trip changed the day: %s", got)
	}
	if _, err := s.GetTemplate(ctx, "u2", tmpl.ID); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}

	if _, err := s.GetPreferences(ctx, "u1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before preferences are saved, got %v", err)
	}
	prefs := models.DefaultPreferences("u1")
	prefs.Email = "student@example.com"
	prefs.EmailNotificationsEnabled = true
	if err := s.SavePreferences(ctx, &prefs); err != nil {
		t.Fatalf("save preferences: %v", err)
	}
	muted := models.DefaultPreferences("u2")
	muted.Email = "quiet@example.com"
	if err := s.SavePreferences(ctx, &muted); err != nil {
		t.Fatalf("save preferences: %v", err)
	}

	prefs.DigestFrequency = models.WeeklyDigest
	if err := s.SavePreferences(ctx, &prefs); err != nil {
		t.Fatalf("update preferences: %v", err)
	}

	subscribers, err := s.ListEmailSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subscribers) != 1 || subscribers[0].UserID != "u1" || subscribers[0].DigestFrequency != models.WeeklyDigest {
		t.Errorf("unexpected subscribers %+v", subscribers)
	}
}

// The notification engine over a real database keeps one row per trigger day.
func TestStore_MaterializeDeadlinesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	semester, course := seedCourse(t, s, "u1", true)

	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for _, a := range []*models.Assignment{
		{UserID: "u1", CourseID: course.ID, Name: "Late essay", DueAt: now.Add(-48 * time.Hour)},
		{UserID: "u1", CourseID: course.ID, Name: "Quiz", DueAt: now.Add(5 * time.Hour)},
		{UserID: "u1", CourseID: course.ID, Name: "Project", DueAt: now.Add(30 * 24 * time.Hour)},
	} {
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	clock := services.NewClock(func() time.Time { return now }, time.UTC)
	svc := services.NewNotificationService(s, s, clock, services.DefaultRetentionPolicy()).
		WithLogger(log.New(io.Discard, "", 0))

	first, err := svc.MaterializeDeadlines(ctx, "u1", semester.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if first.Created != 2 {
		t.Errorf("expected 2 notifications created, got %+v", first)
	}

	second, err := svc.MaterializeDeadlines(ctx, "u1", semester.ID)
	if err != nil {
		t.Fatalf("materialize again: %v", err)
	}
	if second.Created != 0 || second.Existing != 2 {
		t.Errorf("expected the second run to find existing rows, got %+v", second)
	}

	count, _ := s.CountNotifications(ctx, "u1")
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}
