package rules

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/patient"
)

// NewBedOccupancyRule keeps bed status and patient admission in agreement:
// a bed is Occupied exactly when an admitted patient holds it, and no
// patient holds two beds.
func NewBedOccupancyRule() Rule {
	return bedOccupancyRule{}
}

type bedOccupancyRule struct{}

func (bedOccupancyRule) Name() string { return "bed_occupancy" }

func (r bedOccupancyRule) Evaluate(_ context.Context, view View) (Result, error) {
	all := view.Patients()
	patients := make(map[string]patient.Patient, len(all))
	for _, p := range all {
		patients[p.ID] = p
	}

	res := Result{}
	held := make(map[string]string)
	for _, b := range view.Beds() {
		switch b.Status {
		case bed.StatusAvailable:
			if b.PatientID != "" {
				res.Violations = append(res.Violations, block(r.Name(), bed.Kind, b.ID,
					"bed %s is available but references patient %s", b.Label(), b.PatientID))
			}
			continue
		case bed.StatusOccupied:
		default:
			res.Violations = append(res.Violations, block(r.Name(), bed.Kind, b.ID,
				"bed %s has invalid status %q", b.Label(), b.Status))
			continue
		}

		p, ok := patients[b.PatientID]
		if !ok {
			res.Violations = append(res.Violations, block(r.Name(), bed.Kind, b.ID,
				"bed %s is occupied by unknown patient %q", b.Label(), b.PatientID))
			continue
		}
		if !p.Admission.IsAdmitted || !p.OccupiesBed(b.RoomNumber, b.BedNumber) || p.Admission.BedID != b.ID {
			res.Violations = append(res.Violations, block(r.Name(), bed.Kind, b.ID,
				"bed %s is occupied but patient %s is not admitted to it", b.Label(), p.Name))
		}
		if other, dup := held[p.ID]; dup {
			res.Violations = append(res.Violations, block(r.Name(), patient.Kind, p.ID,
				"patient %s holds beds %s and %s", p.Name, other, b.ID))
		}
		held[p.ID] = b.ID
	}

	beds := view.Beds()
	for _, p := range all {
		if !p.Admission.IsAdmitted {
			continue
		}
		if p.Condition == patient.ConditionDeceased {
			res.Violations = append(res.Violations, block(r.Name(), patient.Kind, p.ID,
				"deceased patient %s is still admitted", p.Name))
		}
		b := bed.FindByLocation(beds, p.Admission.RoomNumber, p.Admission.BedNumber)
		if b == nil || b.Status != bed.StatusOccupied || b.PatientID != p.ID {
			res.Violations = append(res.Violations, block(r.Name(), patient.Kind, p.ID,
				"patient %s is admitted to Room %s/Bed %s which is not occupied by them",
				p.Name, p.Admission.RoomNumber, p.Admission.BedNumber))
		}
	}
	return res, nil
}
