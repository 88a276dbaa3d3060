package patient

import "time"

// Condition is the clinical condition shown on the patient board.
type Condition string

const (
	ConditionStable    Condition = "Stable"
	ConditionImproving Condition = "Improving"
	ConditionCritical  Condition = "Critical"
	ConditionNormal    Condition = "Normal"
	ConditionDeceased  Condition = "Deceased"
)

var validConditions = map[Condition]bool{
	ConditionStable: true, ConditionImproving: true, ConditionCritical: true,
	ConditionNormal: true, ConditionDeceased: true,
}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool { return validConditions[c] }

// Admission records where an admitted patient is bedded.
type Admission struct {
	IsAdmitted bool       `json:"is_admitted"`
	RoomNumber string     `json:"room_number,omitempty"`
	BedNumber  string     `json:"bed_number,omitempty"`
	BedID      string     `json:"bed_id,omitempty"`
	AdmittedAt *time.Time `json:"admitted_at,omitempty"`
}

// Visit is one clinical encounter in a patient's medical history. The id
// correlates the prescriptions, lab tests and messages created during it.
type Visit struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Event   string    `json:"event"`
	Doctor  string    `json:"doctor"`
	Details string    `json:"details"`
}

// Patient is a registered patient. Patients are never deleted; deceased
// patients stay as historical records.
type Patient struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Age            int        `json:"age"`
	Gender         string     `json:"gender"`
	Contact        string     `json:"contact,omitempty"`
	Address        string     `json:"address,omitempty"`
	BloodGroup     string     `json:"blood_group,omitempty"`
	Condition      Condition  `json:"condition"`
	AssignedDoctor string     `json:"assigned_doctor"`
	Admission      Admission  `json:"admission"`
	MedicalHistory []Visit    `json:"medical_history"`
	RegisteredAt   time.Time  `json:"registered_at"`
	DeceasedAt     *time.Time `json:"deceased_at,omitempty"`
}

// Visit returns the visit with the given id.
func (p Patient) Visit(id string) (Visit, bool) {
	for _, v := range p.MedicalHistory {
		if v.ID == id {
			return v, true
		}
	}
	return Visit{}, false
}

// OccupiesBed reports whether the patient's admission points at the given
// room and bed.
func (p Patient) OccupiesBed(room, bed string) bool {
	return p.Admission.IsAdmitted && p.Admission.RoomNumber == room && p.Admission.BedNumber == bed
}

// Clone deep-copies p.
func Clone(p Patient) Patient {
	cp := p
	if p.MedicalHistory != nil {
		cp.MedicalHistory = append([]Visit(nil), p.MedicalHistory...)
	}
	if p.Admission.AdmittedAt != nil {
		t := *p.Admission.AdmittedAt
		cp.Admission.AdmittedAt = &t
	}
	if p.DeceasedAt != nil {
		t := *p.DeceasedAt
		cp.DeceasedAt = &t
	}
	return cp
}
