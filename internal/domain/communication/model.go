package communication

import "time"

// Method is the channel a communication goes out on.
type Method string

const (
	MethodSMS   Method = "SMS"
	MethodEmail Method = "Email"
	MethodCall  Method = "Call"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodSMS || m == MethodEmail || m == MethodCall
}

// Status is the delivery state of a communication.
type Status string

const (
	StatusPending Status = "Pending"
	StatusSent    Status = "Sent"
)

// Communication is an outbound message to a patient.
type Communication struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Recipient   string     `json:"recipient,omitempty"`
	Method      Method     `json:"method"`
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// Clone deep-copies c.
func Clone(c Communication) Communication {
	cp := c
	if c.SentAt != nil {
		t := *c.SentAt
		cp.SentAt = &t
	}
	return cp
}
