package hospital

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
)

// UpdatePrescriptionStatus changes a prescription's fulfilment status. It
// is rejected while a suggestion is pending; unknown ids are a no-op.
func (h *Hospital) UpdatePrescriptionStatus(rxID string, status prescription.Status) (store.Outcome, error) {
	return h.Prescriptions.UpdateStatus(rxID, status)
}

// ProposeSuggestion records a pharmacist's substitute for a prescription.
// Until a doctor resolves it, the prescription's status is locked. Unknown
// ids are a no-op.
func (h *Hospital) ProposeSuggestion(rxID string, s prescription.Suggestion) (store.Outcome, error) {
	return h.updatePrescription("propose suggestion", rxID, func(rx *prescription.Prescription) error {
		return prescription.Propose(rx, s, h.now())
	})
}

// ResolveSuggestion applies a doctor's decision to the pending suggestion
// of a prescription. A rejection needs a reason. Unknown ids are a no-op.
func (h *Hospital) ResolveSuggestion(rxID string, decision prescription.Decision, reason string) (store.Outcome, error) {
	outcome, err := h.updatePrescription("resolve suggestion", rxID, func(rx *prescription.Prescription) error {
		return prescription.Resolve(rx, decision, reason, h.now())
	})
	if err == nil && outcome == store.Updated {
		h.logger.Info().Str("prescription_id", rxID).Str("decision", string(decision)).Msg("suggestion resolved")
	}
	return outcome, err
}

func (h *Hospital) updatePrescription(op, rxID string, mutate func(*prescription.Prescription) error) (store.Outcome, error) {
	outcome := store.NotFound
	err := h.transact(context.Background(), op, func(t *tx) error {
		var err error
		outcome, err = t.prescriptions.Update(rxID, mutate)
		return err
	})
	if err != nil {
		return store.Rejected, err
	}
	return outcome, nil
}

// DispensePrescription fills a prescription from pharmacy stock: one unit
// of the medicine is taken from inventory, the prescription is priced from
// the inventory line unless it already carries a price, and its status
// becomes Filled. Unknown ids are a no-op.
func (h *Hospital) DispensePrescription(rxID string) (store.Outcome, error) {
	const op = "dispense prescription"
	outcome := store.NotFound
	err := h.transact(context.Background(), op, func(t *tx) error {
		rx, ok := t.prescriptions.Get(rxID)
		if !ok {
			return nil
		}
		if rx.SuggestionPending() {
			return apperr.Validation(op, "prescription %s has a pending suggestion", rx.ID)
		}
		if rx.Status == prescription.StatusFilled {
			return apperr.Validation(op, "prescription %s is already filled", rx.ID)
		}

		meds := t.meds()
		med := medication.FindByName(meds.Items(), rx.Medicine)
		if med == nil {
			return apperr.Validation(op, "%s is not stocked", rx.Medicine)
		}
		if med.Stock <= 0 {
			return apperr.Validation(op, "%s is out of stock", med.Name)
		}
		_, _ = meds.Update(med.ID, func(m *medication.Medication) error {
			m.Stock--
			return nil
		})
		if med.Stock-1 <= med.LowStockThreshold {
			h.logger.Warn().Str("medication", med.Name).Int("stock", med.Stock-1).Msg("medication low on stock")
		}

		price := med.Price
		_, _ = t.prescriptions.Update(rx.ID, func(rx *prescription.Prescription) error {
			rx.Status = prescription.StatusFilled
			if rx.Price == nil {
				rx.Price = &price
			}
			return nil
		})
		outcome = store.Updated
		return nil
	})
	if err != nil {
		return store.Rejected, err
	}
	return outcome, nil
}
