package rules

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/prescription"
)

// NewInvoiceUniquenessRule requires every invoiced prescription and lab
// test to appear on exactly one invoice of its patient, and every invoice
// item to reference an invoiced entity.
func NewInvoiceUniquenessRule() Rule {
	return invoiceUniquenessRule{}
}

type invoiceUniquenessRule struct{}

func (invoiceUniquenessRule) Name() string { return "invoice_uniqueness" }

type billable struct {
	patientID string
	invoiced  bool
}

type itemKey struct {
	typ billing.ItemType
	id  string
}

func (r invoiceUniquenessRule) Evaluate(_ context.Context, view View) (Result, error) {
	var keys []itemKey
	entities := make(map[itemKey]billable)
	for _, p := range view.Prescriptions() {
		key := itemKey{billing.ItemPrescription, p.ID}
		keys = append(keys, key)
		entities[key] = billable{p.PatientID, p.Invoiced}
	}
	for _, t := range view.LabTests() {
		key := itemKey{billing.ItemLabTest, t.ID}
		keys = append(keys, key)
		entities[key] = billable{t.PatientID, t.Invoiced}
	}

	res := Result{}
	billedOn := make(map[itemKey]string)
	for _, inv := range view.Invoices() {
		for _, item := range inv.Items {
			key := itemKey{item.Type, item.ID}
			if other, dup := billedOn[key]; dup {
				res.Violations = append(res.Violations, block(r.Name(), billing.Kind, inv.ID,
					"%s %s is billed on invoices %s and %s", item.Type, item.ID, other, inv.ID))
				continue
			}
			billedOn[key] = inv.ID

			e, ok := entities[key]
			switch {
			case !ok:
				res.Violations = append(res.Violations, block(r.Name(), billing.Kind, inv.ID,
					"invoice %s bills unknown %s %s", inv.ID, item.Type, item.ID))
			case !e.invoiced:
				res.Violations = append(res.Violations, block(r.Name(), billing.Kind, inv.ID,
					"invoice %s bills %s %s which is not flagged invoiced", inv.ID, item.Type, item.ID))
			case e.patientID != inv.PatientID:
				res.Violations = append(res.Violations, block(r.Name(), billing.Kind, inv.ID,
					"invoice %s bills %s %s of another patient", inv.ID, item.Type, item.ID))
			}
		}
	}

	for _, key := range keys {
		if !entities[key].invoiced {
			continue
		}
		if _, ok := billedOn[key]; !ok {
			entity := prescription.Kind
			if key.typ == billing.ItemLabTest {
				entity = labtest.Kind
			}
			res.Violations = append(res.Violations, block(r.Name(), entity, key.id,
				"%s %s is flagged invoiced but appears on no invoice", key.typ, key.id))
		}
	}
	return res, nil
}
