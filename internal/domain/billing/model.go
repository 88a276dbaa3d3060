package billing

import "time"

// Status is the payment state of an invoice.
type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
	StatusOverdue Status = "Overdue"
)

var validStatuses = map[Status]bool{
	StatusPending: true, StatusPaid: true, StatusOverdue: true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return validStatuses[s] }

// ItemType names the store an invoice item was billed from.
type ItemType string

const (
	ItemPrescription ItemType = "prescription"
	ItemLabTest      ItemType = "labtest"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool { return t == ItemPrescription || t == ItemLabTest }

// Item is one billed prescription or lab test. ID is the id of the billed
// entity, so a (Type, ID) pair identifies it across invoices.
type Item struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  ItemType `json:"type"`
	Price float64  `json:"price"`
}

// Invoice bills a patient for a set of items.
type Invoice struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Amount      float64    `json:"amount"`
	DueDate     time.Time  `json:"due_date"`
	Status      Status     `json:"status"`
	Items       []Item     `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Total sums the item prices.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price
	}
	return sum
}

// Clone deep-copies inv.
func Clone(inv Invoice) Invoice {
	cp := inv
	if inv.Items != nil {
		cp.Items = append([]Item(nil), inv.Items...)
	}
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		cp.PaidAt = &t
	}
	return cp
}
