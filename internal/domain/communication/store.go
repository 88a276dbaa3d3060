// Package communication holds the queue of outbound patient communications.
package communication

import (
	"strings"
	"time"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the communication store.
const Kind = "communications"

// Store owns the communication queue.
type Store struct {
	*store.Store[Communication]
	now func() time.Time
}

// NewStore constructs an empty communication store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		Store: store.New(store.Config[Communication]{
			Kind:    Kind,
			ID:      func(c *Communication) *string { return &c.ID },
			Clone:   Clone,
			IDs:     ids,
			Guard:   guard{},
			Metrics: metrics,
		}),
		now: now,
	}
}

type guard struct{}

func (guard) CheckAdd(_ []Communication, c Communication) error {
	if c.PatientID == "" {
		return apperr.Validation("queue communication", "patient_id is required")
	}
	if !c.Method.Valid() {
		return apperr.Validation("queue communication", "invalid method: %s", c.Method)
	}
	if strings.TrimSpace(c.Message) == "" {
		return apperr.Validation("queue communication", "message is required")
	}
	if c.Status != StatusPending {
		return apperr.Validation("queue communication", "new communications start as %s", StatusPending)
	}
	return nil
}

func (guard) CheckUpdate(_ []Communication, before, after Communication) error {
	if before.Status == StatusSent && after.Status != StatusSent {
		return apperr.Validation("update communication", "a sent communication cannot be requeued")
	}
	if before.Status == StatusSent && (before.Message != after.Message || before.Method != after.Method) {
		return apperr.Validation("update communication", "a sent communication cannot be edited")
	}
	return nil
}

func (guard) CheckRemove([]Communication, Communication) error { return nil }

// Queue records a pending communication.
func (s *Store) Queue(c Communication) (Communication, error) {
	c.Status = StatusPending
	c.SentAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	return s.Add(c)
}

// MarkSent records delivery of a communication.
func (s *Store) MarkSent(id string) (store.Outcome, error) {
	return s.Update(id, func(c *Communication) error {
		if c.Status == StatusSent {
			return apperr.Validation("mark communication sent", "communication %s was already sent", c.ID)
		}
		now := s.now()
		c.Status = StatusSent
		c.SentAt = &now
		return nil
	})
}

// Pending returns the communications awaiting delivery, oldest first.
func (s *Store) Pending() []Communication {
	return s.Filter(func(c Communication) bool { return c.Status == StatusPending })
}

// ForPatient returns a patient's communications.
func (s *Store) ForPatient(patientID string) []Communication {
	return s.Filter(func(c Communication) bool { return c.PatientID == patientID })
}
