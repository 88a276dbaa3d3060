// Package billing holds the invoice store.
package billing

import (
	"reflect"
	"time"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the invoice store.
const Kind = "invoices"

// Store owns the invoice collection. Invoices that bill items are created
// by the hospital invoicing operation, which also flags the billed items.
type Store struct {
	*store.Store[Invoice]
	now func() time.Time
}

// NewStore constructs an empty invoice store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		Store: store.New(store.Config[Invoice]{
			Kind:    Kind,
			ID:      func(inv *Invoice) *string { return &inv.ID },
			Clone:   Clone,
			IDs:     ids,
			Guard:   guard{},
			Metrics: metrics,
		}),
		now: now,
	}
}

type guard struct{}

func (guard) CheckAdd(_ []Invoice, inv Invoice) error {
	if inv.PatientID == "" {
		return apperr.Validation("add invoice", "patient_id is required")
	}
	if len(inv.Items) > 0 {
		return apperr.Validation("add invoice", "itemized invoices are created through invoicing")
	}
	if inv.Amount < 0 {
		return apperr.Validation("add invoice", "amount must not be negative")
	}
	if inv.Status != "" && !inv.Status.Valid() {
		return apperr.Validation("add invoice", "invalid status: %s", inv.Status)
	}
	return nil
}

func (guard) CheckUpdate(_ []Invoice, before, after Invoice) error {
	if !after.Status.Valid() {
		return apperr.Validation("update invoice", "invalid status: %s", after.Status)
	}
	if !reflect.DeepEqual(before.Items, after.Items) {
		return apperr.Validation("update invoice", "invoice items cannot be changed")
	}
	if after.PatientID != before.PatientID {
		return apperr.Validation("update invoice", "invoice patient cannot be changed")
	}
	if len(after.Items) > 0 && after.Amount != before.Amount {
		return apperr.Validation("update invoice", "amount of an itemized invoice is the sum of its items")
	}
	if before.Status == StatusPaid && after.Status != StatusPaid {
		return apperr.Validation("update invoice", "a paid invoice cannot be reopened")
	}
	return nil
}

func (guard) CheckRemove(_ []Invoice, inv Invoice) error {
	if len(inv.Items) > 0 {
		return apperr.Validation("remove invoice", "invoice %s bills items and cannot be removed", inv.ID)
	}
	return nil
}

// Add stores a manual, item-less invoice with status Pending when none is
// given.
func (s *Store) Add(inv Invoice) (Invoice, error) {
	if inv.Status == "" {
		inv.Status = StatusPending
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}
	return s.Store.Add(inv)
}

// MarkPaid settles an invoice.
func (s *Store) MarkPaid(id string) (store.Outcome, error) {
	return s.Update(id, func(inv *Invoice) error {
		if inv.Status == StatusPaid {
			return apperr.Validation("mark invoice paid", "invoice %s is already paid", inv.ID)
		}
		now := s.now()
		inv.Status = StatusPaid
		inv.PaidAt = &now
		return nil
	})
}

// RefreshOverdue flags every pending invoice whose due date has passed and
// returns how many changed. Listeners are notified once when any did.
func (s *Store) RefreshOverdue(now time.Time) int {
	d := s.Begin()
	var changed int
	for _, inv := range d.Items() {
		if inv.Status != StatusPending || inv.DueDate.IsZero() || !inv.DueDate.Before(now) {
			continue
		}
		_, _ = d.Update(inv.ID, func(v *Invoice) error {
			v.Status = StatusOverdue
			return nil
		})
		changed++
	}
	d.Commit()()
	return changed
}

// ForPatient returns a patient's invoices.
func (s *Store) ForPatient(patientID string) []Invoice {
	return s.Filter(func(inv Invoice) bool { return inv.PatientID == patientID })
}

// Outstanding sums the unpaid amount across every invoice.
func (s *Store) Outstanding() float64 {
	var sum float64
	for _, inv := range s.Filter(func(inv Invoice) bool { return inv.Status != StatusPaid }) {
		sum += inv.Amount
	}
	return sum
}
