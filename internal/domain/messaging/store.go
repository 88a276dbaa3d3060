// Package messaging holds the staff chat messages.
package messaging

import (
	"strings"
	"time"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the message store.
const Kind = "messages"

// Store owns the message collection.
type Store struct {
	*store.Store[Message]
	now func() time.Time
}

// NewStore constructs an empty message store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		Store: store.New(store.Config[Message]{
			Kind:    Kind,
			ID:      func(m *Message) *string { return &m.ID },
			IDs:     ids,
			Guard:   guard{},
			Metrics: metrics,
		}),
		now: now,
	}
}

type guard struct{}

func (guard) CheckAdd(_ []Message, m Message) error {
	if err := Validate(m); err != nil {
		return err
	}
	if m.VisitID != "" {
		return apperr.Validation("send message", "visit messages are sent through the visit")
	}
	return nil
}

// Validate checks the fields every new message needs.
func Validate(m Message) error {
	if m.From == "" || m.To == "" {
		return apperr.Validation("send message", "sender and recipient are required")
	}
	if m.From == m.To {
		return apperr.Validation("send message", "sender and recipient must differ")
	}
	if strings.TrimSpace(m.Content) == "" {
		return apperr.Validation("send message", "content is required")
	}
	return nil
}

func (guard) CheckUpdate(_ []Message, before, after Message) error {
	if before.From != after.From || before.To != after.To || before.Content != after.Content ||
		before.PatientID != after.PatientID || before.VisitID != after.VisitID ||
		!before.Timestamp.Equal(after.Timestamp) {
		return apperr.Validation("update message", "sent messages cannot be edited")
	}
	if before.Read && !after.Read {
		return apperr.Validation("update message", "a read message cannot be marked unread")
	}
	return nil
}

func (guard) CheckRemove([]Message, Message) error { return nil }

// Send stores a new unread message stamped with the current time.
func (s *Store) Send(m Message) (Message, error) {
	m.Read = false
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	return s.Add(m)
}

// MarkAsRead marks every unread message addressed to viewer from
// counterpart as read and notifies listeners once. It returns the number of
// messages changed; zero means nothing happened.
func (s *Store) MarkAsRead(viewer, counterpart string) int {
	d := s.Begin()
	var changed int
	for _, m := range d.Items() {
		if m.Read || m.To != viewer || m.From != counterpart {
			continue
		}
		_, _ = d.Update(m.ID, func(v *Message) error {
			v.Read = true
			return nil
		})
		changed++
	}
	d.Commit()()
	return changed
}

// Between returns the messages exchanged by two participants, oldest first.
func (s *Store) Between(a, b string) []Message {
	return s.Filter(func(m Message) bool {
		return (m.From == a && m.To == b) || (m.From == b && m.To == a)
	})
}

// Unread counts the unread messages addressed to viewer.
func (s *Store) Unread(viewer string) int {
	return len(s.Filter(func(m Message) bool { return m.To == viewer && !m.Read }))
}
