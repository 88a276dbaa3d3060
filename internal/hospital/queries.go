package hospital

import (
	"sort"
	"time"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
)

// Queries read store snapshots and recompute on every call.

// BillableItem is a prescription or lab test that can go on a new invoice.
type BillableItem struct {
	Type      billing.ItemType `json:"type"`
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Price     *float64         `json:"price,omitempty"`
	VisitID   string           `json:"visit_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// BillableItems lists a patient's uninvoiced prescriptions and lab tests.
func (h *Hospital) BillableItems(patientID string) []BillableItem {
	var items []BillableItem
	for _, rx := range h.Prescriptions.Billable(patientID) {
		items = append(items, BillableItem{
			Type: billing.ItemPrescription, ID: rx.ID, Name: rx.Medicine,
			Price: rx.Price, VisitID: rx.VisitID, CreatedAt: rx.CreatedAt,
		})
	}
	for _, lt := range h.LabTests.Billable(patientID) {
		items = append(items, BillableItem{
			Type: billing.ItemLabTest, ID: lt.ID, Name: lt.TestName,
			Price: lt.Price, VisitID: lt.VisitID, CreatedAt: lt.CreatedAt,
		})
	}
	return items
}

// AvailableBeds lists the beds that can be assigned.
func (h *Hospital) AvailableBeds() []bed.Bed {
	return h.Beds.Available()
}

// RoomOccupancy groups the beds by room.
func (h *Hospital) RoomOccupancy() []bed.Room {
	return bed.GroupByRoom(h.Beds.GetAll())
}

// Conversation summarizes the messages between a viewer and one
// counterpart.
type Conversation struct {
	Counterpart string            `json:"counterpart"`
	LastMessage messaging.Message `json:"last_message"`
	Unread      int               `json:"unread"`
}

// Conversations groups the viewer's messages by counterpart, counting the
// unread messages addressed to the viewer. The most recently active
// conversation comes first.
func (h *Hospital) Conversations(viewer string) []Conversation {
	byCounterpart := make(map[string]*Conversation)
	var order []string
	for _, m := range h.Messages.GetAll() {
		other := m.Counterpart(viewer)
		if other == "" {
			continue
		}
		c, ok := byCounterpart[other]
		if !ok {
			c = &Conversation{Counterpart: other}
			byCounterpart[other] = c
			order = append(order, other)
		}
		if !m.Timestamp.Before(c.LastMessage.Timestamp) {
			c.LastMessage = m
		}
		if m.To == viewer && !m.Read {
			c.Unread++
		}
	}

	out := make([]Conversation, 0, len(order))
	for _, other := range order {
		out = append(out, *byCounterpart[other])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.Timestamp.After(out[j].LastMessage.Timestamp)
	})
	return out
}

// AdmittedPatientsByDoctor lists the admitted patients assigned to doctor.
func (h *Hospital) AdmittedPatientsByDoctor(doctor string) []patient.Patient {
	return h.Patients.AdmittedBy(doctor)
}

// VisitEntry is one visit with everything created during it.
type VisitEntry struct {
	Visit         patient.Visit               `json:"visit"`
	Prescriptions []prescription.Prescription `json:"prescriptions"`
	LabTests      []labtest.LabTest           `json:"lab_tests"`
	Messages      []messaging.Message         `json:"messages"`
}

// VisitTimeline lists a patient's visits, most recent first, each with the
// prescriptions, lab tests and messages stamped with its id.
func (h *Hospital) VisitTimeline(patientID string) []VisitEntry {
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return nil
	}
	entries := make([]VisitEntry, len(p.MedicalHistory))
	index := make(map[string]int, len(p.MedicalHistory))
	for i, v := range p.MedicalHistory {
		entries[i].Visit = v
		index[v.ID] = i
	}

	for _, rx := range h.Prescriptions.GetAll() {
		if i, ok := index[rx.VisitID]; ok && rx.PatientID == p.ID {
			entries[i].Prescriptions = append(entries[i].Prescriptions, rx)
		}
	}
	for _, lt := range h.LabTests.GetAll() {
		if i, ok := index[lt.VisitID]; ok && lt.PatientID == p.ID {
			entries[i].LabTests = append(entries[i].LabTests, lt)
		}
	}
	for _, m := range h.Messages.GetAll() {
		if i, ok := index[m.VisitID]; ok && m.PatientID == p.ID {
			entries[i].Messages = append(entries[i].Messages, m)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Visit.Date.After(entries[j].Visit.Date)
	})
	return entries
}

// PatientRecord is the full chart of one patient.
type PatientRecord struct {
	Patient        patient.Patient               `json:"patient"`
	Bed            *bed.Bed                      `json:"bed,omitempty"`
	Prescriptions  []prescription.Prescription   `json:"prescriptions"`
	LabTests       []labtest.LabTest             `json:"lab_tests"`
	Invoices       []billing.Invoice             `json:"invoices"`
	Communications []communication.Communication `json:"communications"`
	AutopsyCase    *autopsy.Case                 `json:"autopsy_case,omitempty"`
}

// PatientRecord assembles a patient's chart.
func (h *Hospital) PatientRecord(patientID string) (PatientRecord, bool) {
	p, ok := h.Patients.Get(patientID)
	if !ok {
		return PatientRecord{}, false
	}
	rec := PatientRecord{
		Patient:        p,
		Prescriptions:  h.Prescriptions.Filter(func(rx prescription.Prescription) bool { return rx.PatientID == p.ID }),
		LabTests:       h.LabTests.Filter(func(lt labtest.LabTest) bool { return lt.PatientID == p.ID }),
		Invoices:       h.Invoices.ForPatient(p.ID),
		Communications: h.Communications.ForPatient(p.ID),
	}
	if b := bed.FindByPatient(h.Beds.GetAll(), p.ID); b != nil {
		rec.Bed = b
	}
	if c, ok := h.Autopsies.ForPatient(p.ID); ok {
		rec.AutopsyCase = &c
	}
	return rec, true
}

// LowStockMedications lists the medications at or below their threshold.
func (h *Hospital) LowStockMedications() []medication.Medication {
	return h.Medications.LowStock()
}

// PendingSuggestions lists the prescriptions awaiting a doctor's decision.
func (h *Hospital) PendingSuggestions() []prescription.Prescription {
	return h.Prescriptions.WithPendingSuggestion()
}
