package services

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrMissingRecipient is returned when a mail has no destination address
var ErrMissingRecipient = errors.New("mail recipient has no email address")

// MailKind identifies what a dispatched mail is
type MailKind string

const (
	DailyDigestMail        MailKind = "daily-digest"
	WeeklyDigestMail       MailKind = "weekly-digest"
	AssignmentReminderMail MailKind = "assignment-reminder"
)

// ReminderType is the per-assignment reminder window that fired
type ReminderType string

const (
	ReminderThreeDays  ReminderType = "due-3-days"
	ReminderOneDay     ReminderType = "due-1-day"
	ReminderThreeHours ReminderType = "due-3-hours"
)

// DigestItem is one assignment line in a mail
type DigestItem struct {
	AssignmentID string
	Name         string
	DueAt        time.Time
	Priority     Priority
}

// MailPayload carries everything a dispatcher needs to render a mail
type MailPayload struct {
	To       string
	Name     string
	Items    []DigestItem // digests
	Item     *DigestItem  // reminders
	Reminder ReminderType
	Location *time.Location
}

func (p MailPayload) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Mailer delivers digest and reminder mail. A nil error is the ack.
type Mailer interface {
	Send(ctx context.Context, kind MailKind, payload MailPayload) error
}

// LogMailer writes mails to a logger instead of delivering them; used when
// no mail provider is configured.
type LogMailer struct {
	logger *log.Logger
}

func NewLogMailer(l *log.Logger) *LogMailer {
	if l == nil {
		l = log.Default()
	}
	return &LogMailer{logger: l}
}

func (m *LogMailer) Send(ctx context.Context, kind MailKind, payload MailPayload) error {
	if payload.To == "" {
		return ErrMissingRecipient
	}
	subject, plain, _ := renderMail(kind, payload)
	m.logger.Printf("[mail] to=%s kind=%s subject=%q\n%s", payload.To, kind, subject, plain)
	return nil
}
