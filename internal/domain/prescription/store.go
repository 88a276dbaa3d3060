// Package prescription holds the prescription store and the rules that
// lock a prescription while a substitute suggestion is pending.
package prescription

import (
	"reflect"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the prescription store.
const Kind = "prescriptions"

// Store owns the prescription collection.
type Store struct {
	*store.Store[Prescription]
}

// NewStore constructs an empty prescription store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder) *Store {
	return &Store{Store: store.New(store.Config[Prescription]{
		Kind:    Kind,
		ID:      func(p *Prescription) *string { return &p.ID },
		Clone:   Clone,
		IDs:     ids,
		Guard:   guard{},
		Metrics: metrics,
	})}
}

type guard struct{}

func (guard) CheckAdd(_ []Prescription, p Prescription) error {
	if err := Validate(p); err != nil {
		return err
	}
	if p.VisitID != "" {
		return apperr.Validation("add prescription", "visit prescriptions are added through the visit")
	}
	if p.Invoiced {
		return apperr.Validation("add prescription", "new prescriptions cannot be invoiced")
	}
	if p.Suggestion != nil {
		return apperr.Validation("add prescription", "suggestions are proposed on existing prescriptions")
	}
	return nil
}

func (guard) CheckUpdate(_ []Prescription, before, after Prescription) error {
	return CheckTransition(before, after)
}

func (guard) CheckRemove(_ []Prescription, p Prescription) error {
	if p.Invoiced {
		return apperr.Validation("remove prescription", "prescription %s is on an invoice", p.ID)
	}
	return nil
}

// Validate checks the fields every new prescription needs.
func Validate(p Prescription) error {
	if p.PatientID == "" {
		return apperr.Validation("add prescription", "patient_id is required")
	}
	if p.Medicine == "" {
		return apperr.Validation("add prescription", "medicine is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return apperr.Validation("add prescription", "invalid status: %s", p.Status)
	}
	if p.Price != nil && *p.Price < 0 {
		return apperr.Validation("add prescription", "price must not be negative")
	}
	return nil
}

// CheckTransition validates a direct edit of a prescription.
func CheckTransition(before, after Prescription) error {
	if after.Status != "" && !after.Status.Valid() {
		return apperr.Validation("update prescription", "invalid status: %s", after.Status)
	}
	if before.PatientID != after.PatientID || before.VisitID != after.VisitID {
		return apperr.Validation("update prescription", "patient and visit cannot be changed")
	}
	if after.Price != nil && *after.Price < 0 {
		return apperr.Validation("update prescription", "price must not be negative")
	}
	if before.Invoiced != after.Invoiced {
		return apperr.Validation("update prescription", "invoiced flag is set by invoicing only")
	}
	if before.Invoiced && !reflect.DeepEqual(before.Price, after.Price) {
		return apperr.Validation("update prescription", "price of an invoiced prescription is frozen")
	}
	if !reflect.DeepEqual(before.Suggestion, after.Suggestion) {
		return apperr.Validation("update prescription", "suggestions change through propose/resolve")
	}
	if before.SuggestionPending() {
		if before.Status != after.Status {
			return apperr.Validation("update prescription",
				"prescription %s has a pending suggestion; resolve it before changing status", before.ID)
		}
		if before.Medicine != after.Medicine || before.Dosage != after.Dosage {
			return apperr.Validation("update prescription",
				"prescription %s has a pending suggestion; resolve it before editing the medicine", before.ID)
		}
	}
	return nil
}

// Add stores p with status Pending when none is given.
func (s *Store) Add(p Prescription) (Prescription, error) {
	if p.Status == "" {
		p.Status = StatusPending
	}
	return s.Store.Add(p)
}

// UpdateStatus changes the fulfilment status. It is rejected while a
// suggestion is pending and is a no-op for unknown ids.
func (s *Store) UpdateStatus(id string, status Status) (store.Outcome, error) {
	if !status.Valid() {
		return store.Rejected, apperr.Validation("update prescription status", "invalid status: %s", status)
	}
	return s.Update(id, func(p *Prescription) error {
		p.Status = status
		return nil
	})
}

// Billable returns the uninvoiced prescriptions of a patient.
func (s *Store) Billable(patientID string) []Prescription {
	return s.Filter(func(p Prescription) bool { return p.PatientID == patientID && p.Billable() })
}

// WithPendingSuggestion returns the prescriptions awaiting a doctor's
// decision.
func (s *Store) WithPendingSuggestion() []Prescription {
	return s.Filter(Prescription.SuggestionPending)
}
