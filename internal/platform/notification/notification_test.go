package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

type emailCall struct {
	To      string
	Subject string
	Body    string
}

type mockEmailSender struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

func (m *mockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, emailCall{To: to, Subject: subject, Body: body})
	return m.err
}

type mockSMSSender struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockSMSSender) SendSMS(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, to)
	return m.err
}

func newQueue(t *testing.T, comms ...communication.Communication) *communication.Store {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }
	s := communication.NewStore(idgen.Sequence("c"), telemetry.Nop{}, now)
	for _, c := range comms {
		_, err := s.Queue(c)
		require.NoError(t, err)
	}
	return s
}

func TestDispatch_SendsByMethod(t *testing.T) {
	q := newQueue(t,
		communication.Communication{PatientID: "p1", PatientName: "Ada", Recipient: "ada@example.com", Method: communication.MethodEmail, Message: "Results ready"},
		communication.Communication{PatientID: "p1", Recipient: "+233200000000", Method: communication.MethodSMS, Message: "Appointment at 10"},
		communication.Communication{PatientID: "p1", Recipient: "+233200000000", Method: communication.MethodCall, Message: "Call about discharge"},
	)
	email := &mockEmailSender{}
	sms := &mockSMSSender{}
	d := NewDispatcher(q, email, sms, zerolog.Nop(), nil)

	report, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, report.Failures)

	require.Len(t, email.calls, 1)
	assert.Equal(t, "Message for Ada", email.calls[0].Subject)
	assert.Equal(t, "Results ready", email.calls[0].Body)
	assert.Equal(t, []string{"+233200000000"}, sms.calls)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, communication.MethodCall, pending[0].Method)
}

func TestDispatch_FailureLeavesPending(t *testing.T) {
	q := newQueue(t,
		communication.Communication{PatientID: "p1", Recipient: "+233200000000", Method: communication.MethodSMS, Message: "x"},
		communication.Communication{PatientID: "p1", Method: communication.MethodEmail, Message: "no address"},
	)
	d := NewDispatcher(q, &mockEmailSender{}, &mockSMSSender{err: errors.New("gateway down")}, zerolog.Nop(), nil)

	report, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	require.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.True(t, apperr.IsCollaborator(f.Err), "got %v", f.Err)
	}
	assert.Len(t, q.Pending(), 2)
}

func TestDispatch_CancelledContext(t *testing.T) {
	q := newQueue(t, communication.Communication{PatientID: "p1", Recipient: "a@b.c", Method: communication.MethodEmail, Message: "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDispatcher(q, &mockEmailSender{}, &mockSMSSender{}, zerolog.Nop(), nil).Dispatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, q.Pending(), 1)
}

func TestLogSender(t *testing.T) {
	s := LogSender{Logger: zerolog.Nop()}
	assert.NoError(t, s.SendEmail(context.Background(), "a@b.c", "s", "b"))
	assert.NoError(t, s.SendSMS(context.Background(), "+1", "b"))
}
