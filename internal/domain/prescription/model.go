package prescription

import "time"

// Status is the fulfilment state of a prescription.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusFilled      Status = "Filled"
	StatusUnavailable Status = "Unavailable"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusFilled: true, StatusUnavailable: true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return validStatuses[s] }

// SuggestionStatus tracks a pharmacist's substitute proposal.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Decision is a doctor's answer to a pending suggestion.
type Decision string

const (
	DecisionAccept Decision = "accepted"
	DecisionReject Decision = "rejected"
)

// Suggestion is a proposed substitute medicine awaiting doctor approval.
type Suggestion struct {
	Medicine        string           `json:"medicine"`
	Dosage          string           `json:"dosage,omitempty"`
	Note            string           `json:"note,omitempty"`
	ProposedBy      string           `json:"proposed_by,omitempty"`
	Status          SuggestionStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	// PriorStatus is the prescription status when the suggestion was made;
	// a rejection restores it.
	PriorStatus Status     `json:"prior_status"`
	ProposedAt  time.Time  `json:"proposed_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Prescription is a medicine ordered for a patient, optionally during a
// visit.
type Prescription struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patient_id"`
	PatientName string      `json:"patient_name"`
	VisitID     string      `json:"visit_id,omitempty"`
	Medicine    string      `json:"medicine"`
	Dosage      string      `json:"dosage"`
	Doctor      string      `json:"doctor"`
	Status      Status      `json:"status"`
	Price       *float64    `json:"price,omitempty"`
	Invoiced    bool        `json:"invoiced"`
	Suggestion  *Suggestion `json:"suggestion,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SuggestionPending reports whether a suggestion is awaiting resolution.
func (p Prescription) SuggestionPending() bool {
	return p.Suggestion != nil && p.Suggestion.Status == SuggestionPending
}

// Billable reports whether the prescription can be put on a new invoice.
func (p Prescription) Billable() bool { return !p.Invoiced }

// Clone deep-copies p.
func Clone(p Prescription) Prescription {
	cp := p
	if p.Price != nil {
		v := *p.Price
		cp.Price = &v
	}
	if p.Suggestion != nil {
		s := *p.Suggestion
		if s.ResolvedAt != nil {
			t := *s.ResolvedAt
			s.ResolvedAt = &t
		}
		cp.Suggestion = &s
	}
	return cp
}
