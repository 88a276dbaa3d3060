package hospital

import (
	"context"
	"time"

	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/platform/apperr"
)

// DefaultPaymentTerm is added to the invoice date when no due date is
// given.
const DefaultPaymentTerm = 30 * 24 * time.Hour

// ItemRef selects a billable prescription or lab test.
type ItemRef struct {
	Type billing.ItemType `json:"type"`
	ID   string           `json:"id"`
}

// CreateInvoice bills the selected items to a patient. The invoice amount
// is the sum of the item prices, and every selected item is flagged as
// invoiced in the same step so it can never be billed again.
func (h *Hospital) CreateInvoice(patientID string, refs []ItemRef, dueDate time.Time) (billing.Invoice, error) {
	const op = "create invoice"
	if len(refs) == 0 {
		return billing.Invoice{}, apperr.Validation(op, "select at least one item")
	}
	seen := make(map[ItemRef]bool, len(refs))
	for _, ref := range refs {
		if !ref.Type.Valid() {
			return billing.Invoice{}, apperr.Validation(op, "invalid item type: %s", ref.Type)
		}
		if seen[ref] {
			return billing.Invoice{}, apperr.Validation(op, "%s %s is selected twice", ref.Type, ref.ID)
		}
		seen[ref] = true
	}

	var created billing.Invoice
	err := h.transact(context.Background(), op, func(t *tx) error {
		p, ok := t.patients.Get(patientID)
		if !ok {
			return unknown(op, "patient", patientID)
		}

		items := make([]billing.Item, 0, len(refs))
		for _, ref := range refs {
			item, err := billItem(t, op, patientID, ref)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		now := h.now()
		if dueDate.IsZero() {
			dueDate = now.Add(DefaultPaymentTerm)
		}
		created = t.invoices.Add(billing.Invoice{
			PatientID:   p.ID,
			PatientName: p.Name,
			Amount:      billing.Total(items),
			DueDate:     dueDate,
			Status:      billing.StatusPending,
			Items:       items,
			CreatedAt:   now,
		})

		for _, ref := range refs {
			switch ref.Type {
			case billing.ItemPrescription:
				_, _ = t.prescriptions.Update(ref.ID, func(rx *prescription.Prescription) error {
					rx.Invoiced = true
					return nil
				})
			case billing.ItemLabTest:
				_, _ = t.labTests.Update(ref.ID, func(lt *labtest.LabTest) error {
					lt.Invoiced = true
					return nil
				})
			}
		}
		return nil
	})
	if err != nil {
		return billing.Invoice{}, err
	}
	h.logger.Info().
		Str("invoice_id", created.ID).
		Str("patient_id", patientID).
		Int("items", len(created.Items)).
		Float64("amount", created.Amount).
		Msg("invoice created")
	return created, nil
}

func billItem(t *tx, op, patientID string, ref ItemRef) (billing.Item, error) {
	switch ref.Type {
	case billing.ItemPrescription:
		rx, ok := t.prescriptions.Get(ref.ID)
		if !ok {
			return billing.Item{}, unknown(op, "prescription", ref.ID)
		}
		if rx.PatientID != patientID {
			return billing.Item{}, apperr.Validation(op, "prescription %s belongs to another patient", rx.ID)
		}
		if rx.Invoiced {
			return billing.Item{}, apperr.Validation(op, "prescription %s is already invoiced", rx.ID)
		}
		if rx.SuggestionPending() {
			return billing.Item{}, apperr.Validation(op, "prescription %s has a pending suggestion", rx.ID)
		}
		if rx.Price == nil {
			return billing.Item{}, apperr.Validation(op, "prescription %s has no price", rx.ID)
		}
		return billing.Item{ID: rx.ID, Name: rx.Medicine, Type: ref.Type, Price: *rx.Price}, nil
	default:
		lt, ok := t.labTests.Get(ref.ID)
		if !ok {
			return billing.Item{}, unknown(op, "lab test", ref.ID)
		}
		if lt.PatientID != patientID {
			return billing.Item{}, apperr.Validation(op, "lab test %s belongs to another patient", lt.ID)
		}
		if lt.Invoiced {
			return billing.Item{}, apperr.Validation(op, "lab test %s is already invoiced", lt.ID)
		}
		if lt.Price == nil {
			return billing.Item{}, apperr.Validation(op, "lab test %s has no price", lt.ID)
		}
		return billing.Item{ID: lt.ID, Name: lt.TestName, Type: ref.Type, Price: *lt.Price}, nil
	}
}
