// Package notification delivers queued patient communications over email
// and SMS.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Queue is the outbound communication log the dispatcher drains.
type Queue interface {
	Pending() []communication.Communication
	MarkSent(id string) (store.Outcome, error)
}

// Failure records one communication that could not be delivered.
type Failure struct {
	ID  string
	Err error
}

// Report summarizes one dispatch pass.
type Report struct {
	Sent     int
	Skipped  int
	Failures []Failure
}

// Dispatcher sends pending communications and marks them sent. Calls are
// placed by staff and are left pending.
type Dispatcher struct {
	queue   Queue
	email   EmailSender
	sms     SMSSender
	logger  zerolog.Logger
	metrics telemetry.Recorder
}

// NewDispatcher constructs a Dispatcher. A nil metrics recorder disables
// failure counting.
func NewDispatcher(queue Queue, email EmailSender, sms SMSSender, logger zerolog.Logger, metrics telemetry.Recorder) *Dispatcher {
	if metrics == nil {
		metrics = telemetry.Nop{}
	}
	return &Dispatcher{
		queue:   queue,
		email:   email,
		sms:     sms,
		logger:  logger.With().Str("component", "notification").Logger(),
		metrics: metrics,
	}
}

var errNoRecipient = errors.New("no recipient")

// Dispatch makes one pass over the pending communications. Delivery
// failures are collected in the report and leave the communication
// pending; only a cancelled context aborts the pass.
func (d *Dispatcher) Dispatch(ctx context.Context) (Report, error) {
	var report Report
	for _, c := range d.queue.Pending() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if c.Method == communication.MethodCall {
			report.Skipped++
			continue
		}

		if err := d.send(ctx, c); err != nil {
			op := "send " + strings.ToLower(string(c.Method))
			err = apperr.Collaborator(op, err)
			d.metrics.RecordCollaboratorFailure(ctx, op)
			d.logger.Error().Err(err).Str("communication_id", c.ID).Msg("communication not delivered")
			report.Failures = append(report.Failures, Failure{ID: c.ID, Err: err})
			continue
		}

		outcome, err := d.queue.MarkSent(c.ID)
		if err != nil {
			report.Failures = append(report.Failures, Failure{ID: c.ID, Err: err})
			continue
		}
		if outcome == store.Updated {
			report.Sent++
		}
	}
	return report, nil
}

func (d *Dispatcher) send(ctx context.Context, c communication.Communication) error {
	to := strings.TrimSpace(c.Recipient)
	if to == "" {
		return errNoRecipient
	}
	switch c.Method {
	case communication.MethodEmail:
		return d.email.SendEmail(ctx, to, subject(c), c.Message)
	case communication.MethodSMS:
		return d.sms.SendSMS(ctx, to, c.Message)
	default:
		return fmt.Errorf("unsupported method: %s", c.Method)
	}
}

func subject(c communication.Communication) string {
	if c.PatientName == "" {
		return "Message from the ward"
	}
	return "Message for " + c.PatientName
}

// LogSender writes outbound messages to the log instead of delivering
// them. It is the sender used when no gateway is configured.
type LogSender struct {
	Logger zerolog.Logger
}

// SendEmail logs the email.
func (s LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.Logger.Info().Str("to", to).Str("subject", subject).Int("bytes", len(body)).Msg("email")
	return nil
}

// SendSMS logs the SMS.
func (s LogSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().Str("to", to).Int("bytes", len(body)).Msg("sms")
	return nil
}
