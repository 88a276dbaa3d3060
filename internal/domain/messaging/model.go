package messaging

import "time"

// Message is a staff-to-staff chat message between roles such as
// "doctor", "nurse", "pharmacist" or "lab".
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	PatientID string    `json:"patient_id,omitempty"`
	VisitID   string    `json:"visit_id,omitempty"`
}

// Counterpart returns the other participant of m as seen by viewer, or ""
// when viewer took no part in it.
func (m Message) Counterpart(viewer string) string {
	switch viewer {
	case m.From:
		return m.To
	case m.To:
		return m.From
	}
	return ""
}
