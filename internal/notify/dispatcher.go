// Package notify delivers appointment confirmations. Dispatch is
// fire-and-forget: a failed or skipped notification never surfaces to
// the booking caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notice describes a booked (or rebooked) appointment to announce.
type Notice struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	StartsAt      time.Time // clinic-local
	EndsAt        time.Time
	MeetingLink   string
	Rescheduled   bool
}

type Dispatcher interface {
	Notify(ctx context.Context, n Notice) error
}

// EmailDispatcher sends confirmations through SendGrid.
type EmailDispatcher struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       zerolog.Logger
}

type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

func NewEmailDispatcher(cfg EmailConfig, log zerolog.Logger) *EmailDispatcher {
	return &EmailDispatcher{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (d *EmailDispatcher) Notify(ctx context.Context, n Notice) error {
	if n.PatientEmail == "" {
		d.log.Debug().Str("appointment_id", n.AppointmentID.String()).Msg("patient has no email, skipping notification")
		return nil
	}

	verb := "scheduled"
	if n.Rescheduled {
		verb = "rescheduled"
	}
	subject := fmt.Sprintf("Your appointment has been %s", verb)
	body := fmt.Sprintf("Hello %s,\n\nYour appointment is %s for %s until %s.",
		n.PatientName, verb, n.StartsAt.Format("Monday, 2 January 2006 15:04"), n.EndsAt.Format("15:04"))
	if n.MeetingLink != "" {
		body += fmt.Sprintf("\n\nJoin online: %s", n.MeetingLink)
	}

	from := mail.NewEmail(d.fromName, d.fromEmail)
	to := mail.NewEmail(n.PatientName, n.PatientEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	d.log.Info().
		Str("appointment_id", n.AppointmentID.String()).
		Int("status", resp.StatusCode).
		Msg("confirmation email sent")
	return nil
}

// LogDispatcher records the notice without sending anything. Default
// when no email credentials are configured.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Notify(_ context.Context, n Notice) error {
	d.log.Info().
		Str("appointment_id", n.AppointmentID.String()).
		Time("starts_at", n.StartsAt).
		Bool("rescheduled", n.Rescheduled).
		Msg("notification (log only)")
	return nil
}
