package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const dueFormat = "Mon Jan 2, 3:04 PM"

// SendGridMailer delivers digest and reminder mail through SendGrid
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers one mail. Responses with status >= 400 are failures.
func (s *SendGridMailer) Send(ctx context.Context, kind MailKind, payload MailPayload) error {
	if payload.To == "" {
		return ErrMissingRecipient
	}
	subject, plainContent, htmlContent := renderMail(kind, payload)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(payload.Name, payload.To)
	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send %s to %s: %d", kind, payload.To, response.StatusCode)
	}
	return nil
}

// renderMail builds subject, plain text and HTML bodies for a mail
func renderMail(kind MailKind, payload MailPayload) (subject, plainContent, htmlContent string) {
	name := payload.Name
	if name == "" {
		name = "there"
	}
	switch kind {
	case AssignmentReminderMail:
		item := DigestItem{Name: "An assignment"}
		if payload.Item != nil {
			item = *payload.Item
		}
		subject = reminderSubject(payload.Reminder, item.Name)
		due := item.DueAt.In(payload.location()).Format(dueFormat)
		plainContent = fmt.Sprintf("Hello %s, %s is due %s. Don't miss it!", name, item.Name, due)
		htmlContent = fmt.Sprintf("<p>Hello %s,</p><p><strong>%s</strong> is due %s.</p><p>Don't miss it!</p>",
			html.EscapeString(name), html.EscapeString(item.Name), due)
	default:
		if kind == WeeklyDigestMail {
			subject = "Your weekly assignment digest"
		} else {
			subject = "Your daily assignment digest"
		}
		plainContent, htmlContent = renderDigest(name, payload)
	}
	return subject, plainContent, htmlContent
}

func reminderSubject(reminder ReminderType, assignment string) string {
	switch reminder {
	case ReminderThreeDays:
		return fmt.Sprintf("Reminder: %s is due in 3 days", assignment)
	case ReminderOneDay:
		return fmt.Sprintf("Reminder: %s is due tomorrow", assignment)
	case ReminderThreeHours:
		return fmt.Sprintf("Reminder: %s is due in 3 hours", assignment)
	default:
		return fmt.Sprintf("Reminder: %s", assignment)
	}
}

func renderDigest(name string, payload MailPayload) (string, string) {
	var plain, rich strings.Builder
	fmt.Fprintf(&plain, "Hello %s,\n", name)
	fmt.Fprintf(&rich, "<p>Hello %s,</p>", html.EscapeString(name))

	if len(payload.Items) == 0 {
		plain.WriteString("Nothing is due soon. Enjoy the break!\n")
		rich.WriteString("<p>Nothing is due soon. Enjoy the break!</p>")
		return plain.String(), rich.String()
	}

	plain.WriteString("Here is what's coming up:\n")
	rich.WriteString("<p>Here is what's coming up:</p><ul>")
	for _, item := range payload.Items {
		due := item.DueAt.In(payload.location()).Format(dueFormat)
		fmt.Fprintf(&plain, "- [%s] %s, due %s\n", item.Priority, item.Name, due)
		fmt.Fprintf(&rich, "<li><strong>[%s]</strong> %s, due %s</li>", item.Priority, html.EscapeString(item.Name), due)
	}
	rich.WriteString("</ul>")
	return plain.String(), rich.String()
}
