// Package labtest holds the lab test store.
package labtest

import (
	"reflect"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the lab test store.
const Kind = "lab_tests"

// Store owns the lab test collection.
type Store struct {
	*store.Store[LabTest]
}

// NewStore constructs an empty lab test store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder) *Store {
	return &Store{Store: store.New(store.Config[LabTest]{
		Kind:    Kind,
		ID:      func(t *LabTest) *string { return &t.ID },
		Clone:   Clone,
		IDs:     ids,
		Guard:   guard{},
		Metrics: metrics,
	})}
}

type guard struct{}

// Validate checks the fields every new lab test needs.
func Validate(t LabTest) error {
	if t.PatientID == "" {
		return apperr.Validation("add lab test", "patient_id is required")
	}
	if t.TestName == "" {
		return apperr.Validation("add lab test", "test_name is required")
	}
	if t.Status != StatusPending {
		return apperr.Validation("add lab test", "new lab tests start as %s", StatusPending)
	}
	if t.Price != nil && *t.Price < 0 {
		return apperr.Validation("add lab test", "price must not be negative")
	}
	return nil
}

func (guard) CheckAdd(_ []LabTest, t LabTest) error {
	if err := Validate(t); err != nil {
		return err
	}
	if t.VisitID != "" {
		return apperr.Validation("add lab test", "visit lab tests are requested through the visit")
	}
	if t.Invoiced {
		return apperr.Validation("add lab test", "new lab tests cannot be invoiced")
	}
	return nil
}

func (guard) CheckUpdate(_ []LabTest, before, after LabTest) error {
	if !after.Status.Valid() {
		return apperr.Validation("update lab test", "invalid status: %s", after.Status)
	}
	if before.PatientID != after.PatientID || before.VisitID != after.VisitID {
		return apperr.Validation("update lab test", "patient and visit cannot be changed")
	}
	if statusRank[after.Status] < statusRank[before.Status] {
		return apperr.Validation("update lab test", "status cannot move from %s back to %s", before.Status, after.Status)
	}
	if before.Invoiced != after.Invoiced {
		return apperr.Validation("update lab test", "invoiced flag is set by invoicing only")
	}
	if before.Invoiced && !reflect.DeepEqual(before.Price, after.Price) {
		return apperr.Validation("update lab test", "price of an invoiced lab test is frozen")
	}
	return nil
}

func (guard) CheckRemove(_ []LabTest, t LabTest) error {
	if t.Invoiced {
		return apperr.Validation("remove lab test", "lab test %s is on an invoice", t.ID)
	}
	return nil
}

// Add stores t with status Pending when none is given.
func (s *Store) Add(t LabTest) (LabTest, error) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	return s.Store.Add(t)
}

// UpdateStatus moves a test forward to status.
func (s *Store) UpdateStatus(id string, status Status) (store.Outcome, error) {
	return s.Update(id, func(t *LabTest) error {
		t.Status = status
		return nil
	})
}

// RecordResults stores the results and completes the test.
func (s *Store) RecordResults(id, results string) (store.Outcome, error) {
	if results == "" {
		return store.Rejected, apperr.Validation("record lab results", "results are required")
	}
	return s.Update(id, func(t *LabTest) error {
		t.Results = results
		t.Status = StatusCompleted
		return nil
	})
}

// SetPrice prices a test for billing.
func (s *Store) SetPrice(id string, price float64) (store.Outcome, error) {
	if price < 0 {
		return store.Rejected, apperr.Validation("price lab test", "price must not be negative")
	}
	return s.Update(id, func(t *LabTest) error {
		t.Price = &price
		return nil
	})
}

// Billable returns the uninvoiced lab tests of a patient.
func (s *Store) Billable(patientID string) []LabTest {
	return s.Filter(func(t LabTest) bool { return t.PatientID == patientID && t.Billable() })
}

// ByStatus returns the tests in the given state, e.g. the lab's worklist.
func (s *Store) ByStatus(status Status) []LabTest {
	return s.Filter(func(t LabTest) bool { return t.Status == status })
}
