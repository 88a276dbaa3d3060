package labtest

import "time"

// Status is the processing state of a lab test. It only moves forward.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
)

var statusRank = map[Status]int{
	StatusPending:    1,
	StatusProcessing: 2,
	StatusCompleted:  3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return statusRank[s] > 0 }

// LabTest is a test requested for a patient, optionally during a visit.
type LabTest struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	PatientName  string    `json:"patient_name"`
	VisitID      string    `json:"visit_id,omitempty"`
	TestName     string    `json:"test_name"`
	Instructions string    `json:"instructions,omitempty"`
	Status       Status    `json:"status"`
	Results      string    `json:"results,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	Invoiced     bool      `json:"invoiced"`
	RequestedBy  string    `json:"requested_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Billable reports whether the test can be put on a new invoice.
func (t LabTest) Billable() bool { return !t.Invoiced }

// Clone deep-copies t.
func Clone(t LabTest) LabTest {
	cp := t
	if t.Price != nil {
		v := *t.Price
		cp.Price = &v
	}
	return cp
}
