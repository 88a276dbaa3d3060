// Package medication holds the pharmacy inventory.
package medication

import (
	"strings"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the medication store.
const Kind = "medications"

// Store owns the medication inventory.
type Store struct {
	*store.Store[Medication]
}

// NewStore constructs an empty medication store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder) *Store {
	return &Store{Store: store.New(store.Config[Medication]{
		Kind:    Kind,
		ID:      func(m *Medication) *string { return &m.ID },
		IDs:     ids,
		Guard:   guard{},
		Metrics: metrics,
	})}
}

type guard struct{}

func (guard) CheckAdd(items []Medication, m Medication) error {
	if err := validate("add medication", m); err != nil {
		return err
	}
	if FindByName(items, m.Name) != nil {
		return apperr.Validation("add medication", "%s is already stocked", m.Name)
	}
	return nil
}

func (guard) CheckUpdate(items []Medication, before, after Medication) error {
	if err := validate("update medication", after); err != nil {
		return err
	}
	if other := FindByName(items, after.Name); other != nil && other.ID != before.ID {
		return apperr.Validation("update medication", "%s is already stocked", after.Name)
	}
	return nil
}

func (guard) CheckRemove([]Medication, Medication) error { return nil }

func validate(op string, m Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return apperr.Validation(op, "name is required")
	}
	if m.Price < 0 {
		return apperr.Validation(op, "price must not be negative")
	}
	if m.Stock < 0 {
		return apperr.Validation(op, "insufficient stock of %s", m.Name)
	}
	if m.LowStockThreshold < 0 {
		return apperr.Validation(op, "low stock threshold must not be negative")
	}
	return nil
}

// FindByName looks a medication up by case-insensitive name.
func FindByName(items []Medication, name string) *Medication {
	for i := range items {
		if strings.EqualFold(items[i].Name, strings.TrimSpace(name)) {
			return &items[i]
		}
	}
	return nil
}

// AdjustStock adds delta to the stock level. A change that would leave the
// stock negative is rejected.
func (s *Store) AdjustStock(id string, delta int) (store.Outcome, error) {
	return s.Update(id, func(m *Medication) error {
		m.Stock += delta
		return nil
	})
}

// LowStock returns the medications at or below their threshold.
func (s *Store) LowStock() []Medication {
	return s.Filter(Medication.LowStock)
}

// Lookup returns the medication with the given name.
func (s *Store) Lookup(name string) (Medication, bool) {
	if m := FindByName(s.GetAll(), name); m != nil {
		return *m, true
	}
	return Medication{}, false
}
