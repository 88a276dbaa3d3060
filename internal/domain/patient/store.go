// Package patient holds the patient store and its visit history.
package patient

import (
	"errors"
	"reflect"
	"time"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the patient store.
const Kind = "patients"

// Store owns the patient collection.
type Store struct {
	*store.Store[Patient]
}

// NewStore constructs an empty patient store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder) *Store {
	return &Store{Store: store.New(store.Config[Patient]{
		Kind:    Kind,
		ID:      func(p *Patient) *string { return &p.ID },
		Clone:   Clone,
		IDs:     ids,
		Guard:   guard{},
		Metrics: metrics,
	})}
}

// guard keeps admission, history and death under the control of the
// hospital operations that maintain the related stores.
type guard struct{}

func (guard) CheckAdd(_ []Patient, p Patient) error {
	if p.Name == "" {
		return apperr.Validation("add patient", "name is required")
	}
	if p.Condition != "" && !p.Condition.Valid() {
		return apperr.Validation("add patient", "invalid condition: %s", p.Condition)
	}
	if p.Condition == ConditionDeceased {
		return apperr.Validation("add patient", "a patient cannot be registered as deceased")
	}
	if p.Admission != (Admission{}) {
		return apperr.Validation("add patient", "admission is set through bed assignment")
	}
	if len(p.MedicalHistory) > 0 {
		return apperr.Validation("add patient", "visits are created through CreateVisit")
	}
	return nil
}

func (guard) CheckUpdate(_ []Patient, before, after Patient) error {
	if after.Name == "" {
		return apperr.Validation("update patient", "name is required")
	}
	if after.Condition != "" && !after.Condition.Valid() {
		return apperr.Validation("update patient", "invalid condition: %s", after.Condition)
	}
	if !reflect.DeepEqual(before.Admission, after.Admission) {
		return apperr.Validation("update patient", "admission changes go through bed assignment or discharge")
	}
	if before.Condition != after.Condition &&
		(before.Condition == ConditionDeceased || after.Condition == ConditionDeceased) {
		return apperr.Validation("update patient", "death is recorded through UpdateCondition")
	}
	if !reflect.DeepEqual(before.DeceasedAt, after.DeceasedAt) {
		return apperr.Validation("update patient", "death is recorded through UpdateCondition")
	}
	if !sameHistoryExceptDetails(before.MedicalHistory, after.MedicalHistory) {
		return apperr.Validation("update patient", "medical history is append-only")
	}
	return nil
}

func (guard) CheckRemove(_ []Patient, p Patient) error {
	return apperr.Validation("remove patient", "patient %s is a permanent record", p.ID)
}

func sameHistoryExceptDetails(before, after []Visit) bool {
	if len(before) != len(after) {
		return false
	}
	for i := range before {
		a, b := before[i], after[i]
		a.Details, b.Details = "", ""
		if !a.Date.Equal(b.Date) {
			return false
		}
		a.Date, b.Date = time.Time{}, time.Time{}
		if a != b {
			return false
		}
	}
	return true
}

var errNoVisit = errors.New("visit not found")

// EditVisitDetails replaces the free-text details of one visit in place.
// Unknown patients or visits are a no-op.
func (s *Store) EditVisitDetails(patientID, visitID, details string) (store.Outcome, error) {
	outcome, err := s.Update(patientID, func(p *Patient) error {
		for i := range p.MedicalHistory {
			if p.MedicalHistory[i].ID == visitID {
				p.MedicalHistory[i].Details = details
				return nil
			}
		}
		return errNoVisit
	})
	if errors.Is(err, errNoVisit) {
		return store.NotFound, nil
	}
	return outcome, err
}

// AdmittedBy returns the admitted patients assigned to doctor.
func (s *Store) AdmittedBy(doctor string) []Patient {
	return s.Filter(func(p Patient) bool {
		return p.Admission.IsAdmitted && p.AssignedDoctor == doctor
	})
}
