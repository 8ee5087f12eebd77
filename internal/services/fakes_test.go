package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"planner/internal/models"
)

var quietLogger = log.New(io.Discard, "", 0)

// testClock is a controllable time source
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{current: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Clock() Clock {
	return NewClock(c.Now, c.current.Location())
}

// memStore implements every store contract in memory
type memStore struct {
	mu            sync.Mutex
	seq           int
	assignments   []models.Assignment
	templates     []models.RecurringTemplate
	notifications []models.Notification
	markers       map[string]string
	prefs         []models.UserPreferences

	failCreateAfter int // fail CreateAssignment once this many succeeded; 0 disables
	failDeletes     map[string]bool
}

func newMemStore() *memStore {
	return &memStore{markers: map[string]string{}, failDeletes: map[string]bool{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateAfter > 0 && len(m.assignments) >= m.failCreateAfter {
		return errors.New("store unavailable")
	}
	if a.ID == "" {
		a.ID = m.nextID("assignment")
	}
	m.assignments = append(m.assignments, *a)
	return nil
}

func (m *memStore) ListAssignmentsByTemplate(ctx context.Context, templateID string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.RecurringTemplateID != nil && *a.RecurringTemplateID == templateID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListIncompleteAssignments(ctx context.Context, userID, semesterID string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.CompletedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListTemplates(ctx context.Context, userID string) ([]models.RecurringTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecurringTemplate
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) FindNotificationForDay(ctx context.Context, userID string, typ models.NotificationType, relatedItemID string, dayStart, dayEnd time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID == userID && n.Type == typ && n.RelatedItemID == relatedItemID &&
			!n.CreatedAt.Before(dayStart) && n.CreatedAt.Before(dayEnd) {
			return &n, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.DedupeKey != nil {
		for _, existing := range m.notifications {
			if existing.DedupeKey != nil && *existing.DedupeKey == *n.DedupeKey {
				return false, nil
			}
		}
	}
	if n.ID == "" {
		n.ID = m.nextID("notification")
	}
	m.notifications = append(m.notifications, *n)
	return true, nil
}

func (m *memStore) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CountNotifications(ctx context.Context, userID string) (int64, error) {
	list, _ := m.ListNotifications(ctx, userID)
	return int64(len(list)), nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
		}
	}
	return nil
}

func (m *memStore) DeleteNotification(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeletes[id] {
		return errors.New("delete failed")
	}
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) GetMarker(ctx context.Context, userID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[userID+"/"+key], nil
}

func (m *memStore) SwapMarker(ctx context.Context, userID, key, prev, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "/" + key
	if m.markers[k] != prev {
		return false, nil
	}
	if next == "" {
		delete(m.markers, k)
	} else {
		m.markers[k] = next
	}
	return true, nil
}

func (m *memStore) ListEmailSubscribers(ctx context.Context) ([]models.UserPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPreferences
	for _, p := range m.prefs {
		if p.EmailNotificationsEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prefs {
		if p.UserID == userID {
			return p, nil
		}
	}
	return models.UserPreferences{}, ErrNotFound
}

type sentMail struct {
	kind    MailKind
	payload MailPayload
}

// fakeMailer records sends and fails while err is set
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, kind MailKind, payload MailPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, payload: payload})
	return nil
}

func (f *fakeMailer) count(kind MailKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}
