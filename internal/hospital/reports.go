package hospital

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/documents"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/drafting"
)

// DraftAutopsyReport asks the drafting collaborator for a report on an
// autopsy case and attaches it, moving the case to Report Pending. When the
// collaborator fails the case is left untouched and the error is a
// collaborator failure.
func (h *Hospital) DraftAutopsyReport(ctx context.Context, caseID, instructions string) (autopsy.Case, error) {
	const op = "draft autopsy report"
	c, ok := h.Autopsies.Get(caseID)
	if !ok {
		return autopsy.Case{}, apperr.NotFound(op, "autopsy case", caseID)
	}
	if c.Status == autopsy.StatusCompleted {
		return autopsy.Case{}, apperr.Validation(op, "case %s is completed", c.ID)
	}

	facts := map[string]string{
		"Subject":           c.SubjectName,
		"Date of death":     c.DateOfDeath.Format("2006-01-02 15:04"),
		"Cause of death":    c.CauseOfDeath,
		"Pathologist":       c.Pathologist,
		"Pathologist notes": c.PathologistNotes,
	}
	if p, ok := h.Patients.Get(c.PatientID); ok {
		addPatientFacts(facts, p)
	}

	text, err := h.drafter.Draft(ctx, drafting.Request{
		Kind:         drafting.KindAutopsyReport,
		Subject:      c.SubjectName,
		Facts:        facts,
		Instructions: instructions,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("case_id", c.ID).Msg("autopsy report draft failed")
		return autopsy.Case{}, err
	}

	outcome, err := h.Autopsies.AttachReport(c.ID, text)
	if err != nil {
		return autopsy.Case{}, err
	}
	if outcome == store.NotFound {
		return autopsy.Case{}, apperr.NotFound(op, "autopsy case", caseID)
	}
	updated, _ := h.Autopsies.Get(c.ID)
	return updated, nil
}

// ReferralInput addresses a referral letter.
type ReferralInput struct {
	To     string `json:"to"`
	From   string `json:"from"`
	Reason string `json:"reason"`
}

// DraftReferralLetter drafts a referral letter for a patient and renders it
// as a document. Nothing in the stores changes.
func (h *Hospital) DraftReferralLetter(ctx context.Context, patientID string, in ReferralInput) ([]byte, error) {
	const op = "draft referral letter"
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return nil, apperr.NotFound(op, "patient", patientID)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperr.Validation(op, "reason for referral is required")
	}

	facts := map[string]string{"Referred to": in.To, "Reason": in.Reason}
	addPatientFacts(facts, p)
	var meds []string
	for _, rx := range h.Prescriptions.Filter(func(rx prescription.Prescription) bool { return rx.PatientID == p.ID }) {
		meds = append(meds, strings.TrimSpace(rx.Medicine+" "+rx.Dosage))
	}
	facts["Current medication"] = strings.Join(meds, ", ")

	body, err := h.drafter.Draft(ctx, drafting.Request{
		Kind:         drafting.KindReferralLetter,
		Subject:      p.Name,
		Facts:        facts,
		Instructions: in.Reason,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("patient_id", p.ID).Msg("referral letter draft failed")
		return nil, err
	}
	return documents.ReferralLetter(p, documents.Referral{
		To:   in.To,
		From: in.From,
		Body: body,
		Date: h.now(),
	})
}

func addPatientFacts(facts map[string]string, p patient.Patient) {
	facts["Age"] = strconv.Itoa(p.Age)
	facts["Gender"] = p.Gender
	facts["Blood group"] = p.BloodGroup
	facts["Condition"] = string(p.Condition)
	facts["Attending doctor"] = p.AssignedDoctor
	var history []string
	for _, v := range p.MedicalHistory {
		history = append(history, fmt.Sprintf("%s %s", v.Date.Format("2006-01-02"), v.Event))
	}
	facts["Medical history"] = strings.Join(history, "; ")
}

// IDCard renders a patient's identification card.
func (h *Hospital) IDCard(patientID string) ([]byte, error) {
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return nil, apperr.NotFound("id card", "patient", patientID)
	}
	return documents.IDCard(p, h.now())
}

// DeathCertificate renders the death certificate of a deceased patient,
// including their autopsy case when one is open.
func (h *Hospital) DeathCertificate(patientID string) ([]byte, error) {
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return nil, apperr.NotFound("death certificate", "patient", patientID)
	}
	c, _ := h.Autopsies.ForPatient(p.ID)
	return documents.DeathCertificate(p, c, h.now())
}

// AutopsyReport renders the report attached to an autopsy case.
func (h *Hospital) AutopsyReport(caseID string) ([]byte, error) {
	c, ok := h.Autopsies.Get(caseID)
	if !ok {
		return nil, apperr.NotFound("autopsy report", "autopsy case", caseID)
	}
	return documents.AutopsyReport(c)
}

// QueueCommunication queues an outbound message to a patient, addressed to
// the patient's contact.
func (h *Hospital) QueueCommunication(patientID string, method communication.Method, message string) (communication.Communication, error) {
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return communication.Communication{}, unknown("queue communication", "patient", patientID)
	}
	return h.Communications.Queue(communication.Communication{
		PatientID:   p.ID,
		PatientName: p.Name,
		Recipient:   p.Contact,
		Method:      method,
		Message:     message,
	})
}
