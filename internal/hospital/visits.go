package hospital

import (
	"context"
	"strings"

	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
)

// CreateVisit appends a visit to a patient's medical history and returns it
// with its new id. The date defaults to now and the doctor to the patient's
// assigned doctor.
func (h *Hospital) CreateVisit(patientID string, v patient.Visit) (patient.Visit, error) {
	const op = "create visit"
	if strings.TrimSpace(v.Event) == "" {
		return patient.Visit{}, apperr.Validation(op, "event is required")
	}
	var created patient.Visit
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, ok := t.patients.Get(patientID)
		if !ok {
			return unknown(op, "patient", patientID)
		}
		if p.Condition == patient.ConditionDeceased {
			return apperr.Validation(op, "patient %s is deceased", p.Name)
		}
		v.ID = h.ids.NewID()
		if v.Date.IsZero() {
			v.Date = h.now()
		}
		if v.Doctor == "" {
			v.Doctor = p.AssignedDoctor
		}
		_, _ = t.patients.Update(p.ID, func(p *patient.Patient) error {
			p.MedicalHistory = append(p.MedicalHistory, v)
			return nil
		})
		created = v
		return nil
	})
	if err != nil {
		return patient.Visit{}, err
	}
	return created, nil
}

// EditVisitDetails replaces the free-text details of a visit. Unknown
// patients or visits are a no-op.
func (h *Hospital) EditVisitDetails(patientID, visitID, details string) (store.Outcome, error) {
	return h.Patients.EditVisitDetails(patientID, visitID, details)
}

// visitOf resolves the patient and, when visitID is set, the visit within
// their history.
func visitOf(t *tx, op, patientID, visitID string) (patient.Patient, patient.Visit, error) {
	p, ok := t.patients.Get(patientID)
	if !ok {
		return patient.Patient{}, patient.Visit{}, unknown(op, "patient", patientID)
	}
	if visitID == "" {
		return p, patient.Visit{}, nil
	}
	v, ok := p.Visit(visitID)
	if !ok {
		return patient.Patient{}, patient.Visit{}, unknown(op, "visit", visitID)
	}
	return p, v, nil
}

// AddPrescription prescribes for a patient. With a visit id the
// prescription is stamped with that visit; an empty visit id records a
// walk-in prescription.
func (h *Hospital) AddPrescription(patientID, visitID string, rx prescription.Prescription) (prescription.Prescription, error) {
	const op = "add prescription"
	var added prescription.Prescription
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, v, err := visitOf(t, op, patientID, visitID)
		if err != nil {
			return err
		}
		rx.PatientID = p.ID
		rx.PatientName = p.Name
		rx.VisitID = visitID
		rx.Invoiced = false
		rx.Suggestion = nil
		rx.CreatedAt = h.now()
		if rx.Status == "" {
			rx.Status = prescription.StatusPending
		}
		if rx.Doctor == "" {
			rx.Doctor = firstNonEmpty(v.Doctor, p.AssignedDoctor)
		}
		if err := prescription.Validate(rx); err != nil {
			return err
		}
		added = t.prescriptions.Add(rx)
		return nil
	})
	if err != nil {
		return prescription.Prescription{}, err
	}
	return added, nil
}

// SendToLab requests a lab test for a patient, optionally within a visit.
func (h *Hospital) SendToLab(patientID, visitID string, test labtest.LabTest) (labtest.LabTest, error) {
	const op = "send to lab"
	var added labtest.LabTest
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, v, err := visitOf(t, op, patientID, visitID)
		if err != nil {
			return err
		}
		test.PatientID = p.ID
		test.PatientName = p.Name
		test.VisitID = visitID
		test.Status = labtest.StatusPending
		test.Results = ""
		test.Invoiced = false
		test.CreatedAt = h.now()
		if test.RequestedBy == "" {
			test.RequestedBy = firstNonEmpty(v.Doctor, p.AssignedDoctor)
		}
		if err := labtest.Validate(test); err != nil {
			return err
		}
		added = t.labTests.Add(test)
		return nil
	})
	if err != nil {
		return labtest.LabTest{}, err
	}
	return added, nil
}

// SendMessage posts a staff message. A message about a patient may be tied
// to one of that patient's visits.
func (h *Hospital) SendMessage(m messaging.Message) (messaging.Message, error) {
	const op = "send message"
	if m.PatientID == "" && m.VisitID != "" {
		return messaging.Message{}, apperr.Validation(op, "a visit message needs its patient")
	}
	if m.PatientID == "" {
		return h.Messages.Send(m)
	}
	var sent messaging.Message
	err := h.transact(context.Background(), op, func(t *tx) error {
		if _, _, err := visitOf(t, op, m.PatientID, m.VisitID); err != nil {
			return err
		}
		m.Read = false
		if m.Timestamp.IsZero() {
			m.Timestamp = h.now()
		}
		if err := messaging.Validate(m); err != nil {
			return err
		}
		sent = t.messages.Add(m)
		return nil
	})
	if err != nil {
		return messaging.Message{}, err
	}
	return sent, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
