package autopsy

import "time"

// Status is the stage of an autopsy case.
type Status string

const (
	StatusAwaiting      Status = "Awaiting Autopsy"
	StatusReportPending Status = "Report Pending"
	StatusCompleted     Status = "Completed"
)

var statusRank = map[Status]int{
	StatusAwaiting:      1,
	StatusReportPending: 2,
	StatusCompleted:     3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return statusRank[s] > 0 }

// Case is the record kept for a deceased subject.
type Case struct {
	ID               string     `json:"id"`
	PatientID        string     `json:"patient_id,omitempty"`
	SubjectName      string     `json:"subject_name"`
	DateOfDeath      time.Time  `json:"date_of_death"`
	CauseOfDeath     string     `json:"cause_of_death,omitempty"`
	Status           Status     `json:"status"`
	Pathologist      string     `json:"pathologist,omitempty"`
	PathologistNotes string     `json:"pathologist_notes,omitempty"`
	Report           string     `json:"report,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Clone deep-copies c.
func Clone(c Case) Case {
	cp := c
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
