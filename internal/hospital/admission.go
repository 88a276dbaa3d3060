package hospital

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
)

// AssignBed admits a patient to a bed. A patient who already holds another
// bed is moved: the old bed is released in the same step, so no listener
// ever sees the patient in two beds. Assigning the bed the patient already
// holds changes nothing.
func (h *Hospital) AssignBed(patientID, bedID string) (bed.Bed, error) {
	const op = "assign bed"
	var assigned bed.Bed
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, ok := t.patients.Get(patientID)
		if !ok {
			return unknown(op, "patient", patientID)
		}
		b, ok := t.beds.Get(bedID)
		if !ok {
			return unknown(op, "bed", bedID)
		}
		if p.Condition == patient.ConditionDeceased {
			return apperr.Validation(op, "patient %s is deceased", p.Name)
		}
		if b.Occupied() {
			if b.PatientID == p.ID {
				assigned = b
				return nil
			}
			return apperr.Validation(op, "%s is occupied", b.Label())
		}

		if prev := bed.FindByPatient(t.beds.Items(), p.ID); prev != nil {
			vacate(t, prev.ID)
		}
		_, _ = t.beds.Update(b.ID, func(b *bed.Bed) error {
			b.Status = bed.StatusOccupied
			b.PatientID = p.ID
			return nil
		})
		_, _ = t.patients.Update(p.ID, func(p *patient.Patient) error {
			admittedAt := p.Admission.AdmittedAt
			if !p.Admission.IsAdmitted || admittedAt == nil {
				now := h.now()
				admittedAt = &now
			}
			p.Admission = patient.Admission{
				IsAdmitted: true,
				RoomNumber: b.RoomNumber,
				BedNumber:  b.BedNumber,
				BedID:      b.ID,
				AdmittedAt: admittedAt,
			}
			return nil
		})
		assigned, _ = t.beds.Get(b.ID)
		return nil
	})
	if err != nil {
		return bed.Bed{}, err
	}
	return assigned, nil
}

// vacate stages a bed as Available. The patient's admission is not
// touched; callers clear or move it themselves.
func vacate(t *tx, bedID string) {
	_, _ = t.beds.Update(bedID, func(b *bed.Bed) error {
		b.Status = bed.StatusAvailable
		b.PatientID = ""
		return nil
	})
}

func discharge(t *tx, patientID string) {
	if b := bed.FindByPatient(t.beds.Items(), patientID); b != nil {
		vacate(t, b.ID)
	}
	_, _ = t.patients.Update(patientID, func(p *patient.Patient) error {
		p.Admission = patient.Admission{}
		return nil
	})
}

// ReleaseBed frees an occupied bed and clears its patient's admission.
func (h *Hospital) ReleaseBed(bedID string) (store.Outcome, error) {
	const op = "release bed"
	outcome := store.NotFound
	err := h.transact(context.Background(), op, func(t *tx) error {
		b, ok := t.beds.Get(bedID)
		if !ok {
			return nil
		}
		if !b.Occupied() {
			return apperr.Validation(op, "%s is not occupied", b.Label())
		}
		discharge(t, b.PatientID)
		outcome = store.Updated
		return nil
	})
	if err != nil {
		return store.Rejected, err
	}
	return outcome, nil
}

// Discharge ends a patient's admission and frees their bed.
func (h *Hospital) Discharge(patientID string) (store.Outcome, error) {
	const op = "discharge patient"
	outcome := store.NotFound
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, ok := t.patients.Get(patientID)
		if !ok {
			return nil
		}
		if !p.Admission.IsAdmitted {
			return apperr.Validation(op, "patient %s is not admitted", p.Name)
		}
		discharge(t, p.ID)
		outcome = store.Updated
		return nil
	})
	if err != nil {
		return store.Rejected, err
	}
	return outcome, nil
}

// DeleteBed removes a bed. Occupied beds cannot be deleted.
func (h *Hospital) DeleteBed(bedID string) (store.Outcome, error) {
	return h.Beds.Remove(bedID)
}

// UpdateCondition changes a patient's clinical condition. Recording a
// death goes through RecordDeath.
func (h *Hospital) UpdateCondition(patientID string, condition patient.Condition) (store.Outcome, error) {
	if condition == patient.ConditionDeceased {
		_, err := h.RecordDeath(patientID, "")
		if err != nil {
			if apperr.IsNotFound(err) {
				return store.NotFound, nil
			}
			return store.Rejected, err
		}
		return store.Updated, nil
	}
	if !condition.Valid() {
		return store.Rejected, apperr.Validation("update condition", "invalid condition: %s", condition)
	}
	return h.Patients.Update(patientID, func(p *patient.Patient) error {
		p.Condition = condition
		return nil
	})
}

// RecordDeath marks a patient deceased, frees their bed and opens an
// autopsy case for them, all in one step. It returns the opened case.
func (h *Hospital) RecordDeath(patientID, cause string) (autopsy.Case, error) {
	const op = "record death"
	var opened autopsy.Case
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, ok := t.patients.Get(patientID)
		if !ok {
			return apperr.NotFound(op, "patient", patientID)
		}
		if p.Condition == patient.ConditionDeceased {
			return apperr.Validation(op, "patient %s is already recorded as deceased", p.Name)
		}
		now := h.now()
		if p.Admission.IsAdmitted {
			discharge(t, p.ID)
		}
		_, _ = t.patients.Update(p.ID, func(p *patient.Patient) error {
			p.Condition = patient.ConditionDeceased
			p.DeceasedAt = &now
			return nil
		})
		opened = t.cases().Add(autopsy.Case{
			PatientID:    p.ID,
			SubjectName:  p.Name,
			DateOfDeath:  now,
			CauseOfDeath: cause,
			Status:       autopsy.StatusAwaiting,
			CreatedAt:    now,
		})
		return nil
	})
	if err != nil {
		return autopsy.Case{}, err
	}
	h.logger.Info().Str("patient_id", patientID).Str("case_id", opened.ID).Msg("death recorded")
	return opened, nil
}
