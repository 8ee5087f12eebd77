package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"planner/internal/models"
)

// ErrUnsupportedPattern indicates a template pattern the expander cannot step through
var ErrUnsupportedPattern = errors.New("recurrence: unsupported pattern")

// Occurrence is one concrete instance of a recurring template
type Occurrence struct {
	Index int
	Name  string
	DueAt time.Time
}

// GenerateOccurrences returns the occurrences of tmpl that still need an
// assignment. It walks from StartDate through max(EndDate, now), placing step
// k at StartDate plus k pattern units and aligning it forward to the template
// weekday. Candidates on a
// day already covered by existing, or due before now, are skipped.
//
// The {n} index is always counted in 7-day units from StartDate, whatever the
// stepping unit is.
func GenerateOccurrences(tmpl models.RecurringTemplate, existing []models.Assignment, now time.Time, loc *time.Location) ([]Occurrence, error) {
	if loc == nil {
		loc = time.Local
	}
	weekday, err := tmpl.Weekday()
	if err != nil {
		return nil, err
	}
	hour, minute, err := models.ParseClock(tmpl.Time)
	if err != nil {
		return nil, err
	}
	advance, err := stepFor(tmpl.Pattern)
	if err != nil {
		return nil, err
	}

	now = now.In(loc)
	start := dateIn(tmpl.StartDate, loc)
	windowEnd := dateIn(tmpl.EndDate, loc)
	if now.After(windowEnd) {
		windowEnd = now
	}

	covered := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		covered[a.DueAt.In(loc).Format(time.DateOnly)] = struct{}{}
	}

	var occurrences []Occurrence
	for step := 0; ; step++ {
		current := alignToWeekday(advance(start, step), weekday)
		if current.After(windowEnd) {
			break
		}
		if _, ok := covered[current.Format(time.DateOnly)]; ok {
			continue
		}
		y, m, d := current.Date()
		dueAt := time.Date(y, m, d, hour, minute, 0, 0, loc)
		if dueAt.Before(now) {
			continue
		}
		index := calendarDaysBetween(start, current)/7 + 1
		occurrences = append(occurrences, Occurrence{
			Index: index,
			Name:  strings.ReplaceAll(tmpl.NamePattern, models.OccurrencePlaceholder, strconv.Itoa(index)),
			DueAt: dueAt,
		})
	}
	return occurrences, nil
}

// stepFor returns the unaligned date of the step-th occurrence, always
// counted from the anchor so weekday alignment never accumulates.
func stepFor(pattern models.RecurrencePattern) (func(anchor time.Time, step int) time.Time, error) {
	switch pattern {
	case models.WeeklyPattern:
		return func(anchor time.Time, step int) time.Time { return anchor.AddDate(0, 0, 7*step) }, nil
	case models.BiweeklyPattern:
		return func(anchor time.Time, step int) time.Time { return anchor.AddDate(0, 0, 14*step) }, nil
	case models.MonthlyPattern:
		return addMonthsClamped, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPattern, pattern)
	}
}

// addMonthsClamped moves anchor by months, clamping the day to the target
// month's length so Jan 31 steps to Feb 29 rather than Mar 2.
func addMonthsClamped(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, anchor.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, anchor.Location())
}

// dateIn returns midnight in loc of the calendar date t carries
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func alignToWeekday(t time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset)
}

// RecurrenceService materializes recurring templates into assignments
type RecurrenceService struct {
	assignments AssignmentStore
	templates   TemplateStore
	clock       Clock
	logger      *log.Logger
}

func NewRecurrenceService(assignments AssignmentStore, templates TemplateStore, clock Clock) *RecurrenceService {
	return &RecurrenceService{
		assignments: assignments,
		templates:   templates,
		clock:       clock,
		logger:      log.Default(),
	}
}

// WithLogger replaces the service logger
func (s *RecurrenceService) WithLogger(l *log.Logger) *RecurrenceService {
	if l != nil {
		s.logger = l
	}
	return s
}

// ExpandTemplate creates the assignments tmpl is missing. When a write fails
// the assignments created so far are returned with the error; running again
// picks up where it stopped without duplicating.
func (s *RecurrenceService) ExpandTemplate(ctx context.Context, tmpl models.RecurringTemplate) ([]models.Assignment, error) {
	existing, err := s.assignments.ListAssignmentsByTemplate(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for template %s: %w", tmpl.ID, err)
	}

	now := s.clock.Now()
	occurrences, err := GenerateOccurrences(tmpl, existing, now, s.clock.Location())
	if err != nil {
		return nil, fmt.Errorf("expand template %s: %w", tmpl.ID, err)
	}

	assignmentType := tmpl.Type
	if assignmentType == "" {
		assignmentType = models.HomeworkAssignment
	}

	created := make([]models.Assignment, 0, len(occurrences))
	for _, occ := range occurrences {
		templateID := tmpl.ID
		assignment := models.Assignment{
			UserID:              tmpl.UserID,
			CourseID:            tmpl.CourseID,
			Name:                occ.Name,
			DueAt:               occ.DueAt,
			Type:                assignmentType,
			IsRecurring:         true,
			RecurringTemplateID: &templateID,
			CreatedAt:           now,
		}
		if err := s.assignments.CreateAssignment(ctx, &assignment); err != nil {
			return created, fmt.Errorf("create occurrence %q of template %s: %w", occ.Name, tmpl.ID, err)
		}
		created = append(created, assignment)
	}
	return created, nil
}

// ExpandAll expands every template the user owns. Failures are logged and
// joined; templates with an unsupported pattern are skipped.
func (s *RecurrenceService) ExpandAll(ctx context.Context, userID string) (int, error) {
	templates, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}

	total := 0
	var errs []error
	for _, tmpl := range templates {
		created, err := s.ExpandTemplate(ctx, tmpl)
		total += len(created)
		if errors.Is(err, ErrUnsupportedPattern) {
			s.logger.Printf("Warning: Skipping template %s: %v", tmpl.ID, err)
			continue
		}
		if err != nil {
			s.logger.Printf("Error: Failed to expand template %s: %v", tmpl.ID, err)
			errs = append(errs, err)
		}
	}
	if total > 0 {
		s.logger.Printf("Generated %d recurring assignments for user %s", total, userID)
	}
	return total, errors.Join(errs...)
}
