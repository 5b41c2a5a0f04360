package services

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/utils"
)

// ReminderSubject is the subject line of every call reminder email
const ReminderSubject = "Upcoming Call Reminder"

// NotificationService sends user-facing notifications. Only email is delivered; SMS and popup
// preferences are stored on the scheduled call but never dispatched from the backend.
type NotificationService interface {
	SendEmail(ctx context.Context, email, subject, message string) error
	SendEmailReminder(ctx context.Context, reminder ReminderEmail) error
	SendPasswordReset(ctx context.Context, email, name, resetLink string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(ctx context.Context, email, subject, message string) error
}

// ReminderEmail carries what the reminder body renders
type ReminderEmail struct {
	To              string
	LeadName        string
	ScheduledTime   time.Time
	DurationSeconds int
	Notes           string
}

// Body renders the plain-text reminder
func (r ReminderEmail) Body() string {
	var b strings.Builder
	b.WriteString("You have an upcoming call.\n\n")
	fmt.Fprintf(&b, "Lead: %s\n", r.LeadName)
	fmt.Fprintf(&b, "Scheduled time: %s\n", r.ScheduledTime.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Duration: %d minutes\n", (r.DurationSeconds+59)/60)
	if strings.TrimSpace(r.Notes) != "" {
		fmt.Fprintf(&b, "Notes: %s\n", r.Notes)
	}
	return b.String()
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider) NotificationService {
	return &NotificationServiceImpl{emailProvider: emailProvider}
}

// SendEmail sends an email to the specified email address
func (s *NotificationServiceImpl) SendEmail(ctx context.Context, email, subject, message string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	email = utils.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	return s.emailProvider.SendEmail(ctx, email, subject, message)
}

func (s *NotificationServiceImpl) SendEmailReminder(ctx context.Context, reminder ReminderEmail) error {
	return s.SendEmail(ctx, reminder.To, ReminderSubject, reminder.Body())
}

func (s *NotificationServiceImpl) SendPasswordReset(ctx context.Context, email, name, resetLink string) error {
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in one hour.\n\n%s\n", name, resetLink)
	return s.SendEmail(ctx, email, "Password Reset", body)
}

type MockEmailProvider struct {
	logger *log.Logger
}

func NewMockEmailProvider(logger *log.Logger) EmailProvider {
	if logger == nil {
		logger = log.Default()
	}
	return &MockEmailProvider{logger: logger}
}

func (p *MockEmailProvider) SendEmail(_ context.Context, email, subject, message string) error {
	p.logger.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}

// SMTPEmailProvider delivers mail through a plain SMTP relay with optional PLAIN auth
type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	timeout   time.Duration
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string, timeout time.Duration) EmailProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   timeout,
	}
}

func (p *SMTPEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	msg := buildMIMEMessage(p.from(), email, subject, message)

	// net/smtp has no context support; run it aside and give up when ctx or the timeout ends
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, p.fromEmail, []string{email}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", email, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", email, ctx.Err())
	}
}

func (p *SMTPEmailProvider) from() string {
	if p.fromName == "" {
		return p.fromEmail
	}
	return fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail)
}

func buildMIMEMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
