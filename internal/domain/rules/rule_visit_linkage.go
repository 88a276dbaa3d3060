package rules

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/prescription"
)

// NewVisitLinkageRule requires every visit id carried by a prescription,
// lab test or message to name a visit in the history of the same patient.
func NewVisitLinkageRule() Rule {
	return visitLinkageRule{}
}

type visitLinkageRule struct{}

func (visitLinkageRule) Name() string { return "visit_linkage" }

func (r visitLinkageRule) Evaluate(_ context.Context, view View) (Result, error) {
	visits := make(map[string]map[string]bool)
	for _, p := range view.Patients() {
		ids := make(map[string]bool, len(p.MedicalHistory))
		for _, v := range p.MedicalHistory {
			ids[v.ID] = true
		}
		visits[p.ID] = ids
	}
	linked := func(patientID, visitID string) bool {
		return visitID == "" || visits[patientID][visitID]
	}

	res := Result{}
	for _, p := range view.Prescriptions() {
		if !linked(p.PatientID, p.VisitID) {
			res.Violations = append(res.Violations, block(r.Name(), prescription.Kind, p.ID,
				"prescription %s references visit %s which patient %s does not have", p.ID, p.VisitID, p.PatientID))
		}
	}
	for _, t := range view.LabTests() {
		if !linked(t.PatientID, t.VisitID) {
			res.Violations = append(res.Violations, block(r.Name(), labtest.Kind, t.ID,
				"lab test %s references visit %s which patient %s does not have", t.ID, t.VisitID, t.PatientID))
		}
	}
	for _, m := range view.Messages() {
		if !linked(m.PatientID, m.VisitID) {
			res.Violations = append(res.Violations, block(r.Name(), messaging.Kind, m.ID,
				"message %s references visit %s which patient %s does not have", m.ID, m.VisitID, m.PatientID))
		}
	}
	return res, nil
}
