package services

import "time"

// Priority is the urgency tier of an assignment
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ClassifyPriority maps the time left until dueAt to an urgency tier.
// Overdue work is urgent. Bounds are inclusive, so exactly 24h left is still urgent.
// The result depends on now and must not be persisted.
func ClassifyPriority(dueAt, now time.Time) Priority {
	hoursUntilDue := dueAt.Sub(now).Hours()
	switch {
	case hoursUntilDue < 0:
		return PriorityUrgent
	case hoursUntilDue <= 24:
		return PriorityUrgent
	case hoursUntilDue <= 72:
		return PriorityHigh
	case hoursUntilDue <= 168:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank orders tiers from most (0) to least (3) urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}
