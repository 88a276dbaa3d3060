package hospital

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/store"
)

type draft interface {
	Kind() string
	Clear()
	Dirty() bool
	Commit() func()
	Rollback()
}

// tx stages one coordinated operation. The drafts of the stores the rules
// inspect are opened up front in canonical order; the others are opened on
// first use. Inside a tx, stores must only be read through the drafts: the
// store locks are held and are not reentrant.
type tx struct {
	h      *Hospital
	drafts []draft

	patients      *store.Draft[patient.Patient]
	beds          *store.Draft[bed.Bed]
	prescriptions *store.Draft[prescription.Prescription]
	labTests      *store.Draft[labtest.LabTest]
	invoices      *store.Draft[billing.Invoice]
	messages      *store.Draft[messaging.Message]

	medications    *store.Draft[medication.Medication]
	communications *store.Draft[communication.Communication]
	autopsies      *store.Draft[autopsy.Case]
}

func (h *Hospital) begin() *tx {
	t := &tx{h: h}
	t.patients = open(t, h.Patients.Store)
	t.beds = open(t, h.Beds.Store)
	t.prescriptions = open(t, h.Prescriptions.Store)
	t.labTests = open(t, h.LabTests.Store)
	t.invoices = open(t, h.Invoices.Store)
	t.messages = open(t, h.Messages.Store)
	return t
}

func open[T any](t *tx, s *store.Store[T]) *store.Draft[T] {
	d := s.Begin()
	t.drafts = append(t.drafts, d)
	return d
}

func (t *tx) meds() *store.Draft[medication.Medication] {
	if t.medications == nil {
		t.medications = open(t, t.h.Medications.Store)
	}
	return t.medications
}

func (t *tx) comms() *store.Draft[communication.Communication] {
	if t.communications == nil {
		t.communications = open(t, t.h.Communications.Store)
	}
	return t.communications
}

func (t *tx) cases() *store.Draft[autopsy.Case] {
	if t.autopsies == nil {
		t.autopsies = open(t, t.h.Autopsies.Store)
	}
	return t.autopsies
}

// The rules view reads the staged collections.

func (t *tx) Patients() []patient.Patient                { return t.patients.Items() }
func (t *tx) Beds() []bed.Bed                            { return t.beds.Items() }
func (t *tx) Prescriptions() []prescription.Prescription { return t.prescriptions.Items() }
func (t *tx) LabTests() []labtest.LabTest                { return t.labTests.Items() }
func (t *tx) Invoices() []billing.Invoice                { return t.invoices.Items() }
func (t *tx) Messages() []messaging.Message              { return t.messages.Items() }

func (t *tx) touched() []string {
	var kinds []string
	for _, d := range t.drafts {
		if d.Dirty() {
			kinds = append(kinds, d.Kind())
		}
	}
	return kinds
}

func (t *tx) commit() (publish func()) {
	publishers := make([]func(), 0, len(t.drafts))
	for _, d := range t.drafts {
		publishers = append(publishers, d.Commit())
	}
	return func() {
		for _, p := range publishers {
			p()
		}
	}
}

func (t *tx) rollback() {
	for i := len(t.drafts) - 1; i >= 0; i-- {
		t.drafts[i].Rollback()
	}
}

// transact runs fn against a fresh tx, checks the invariants over the
// staged state and commits every draft when they hold. Listeners are
// notified after the hospital lock is released, one store at a time.
func (h *Hospital) transact(ctx context.Context, op string, fn func(*tx) error) error {
	publish, err := h.stage(ctx, op, fn)
	if err != nil {
		return err
	}
	publish()
	return nil
}

func (h *Hospital) stage(ctx context.Context, op string, fn func(*tx) error) (publish func(), err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.begin()
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
	}()

	if err := fn(t); err != nil {
		t.rollback()
		h.logger.Debug().Str("op", op).Err(err).Msg("operation rejected")
		return nil, err
	}

	touched := t.touched()
	if len(touched) == 0 {
		t.rollback()
		return func() {}, nil
	}

	res, err := h.engine.Check(ctx, op, t)
	for _, v := range res.Violations {
		h.metrics.RecordViolation(ctx, v.Rule)
		h.logger.Warn().
			Str("op", op).
			Str("rule", v.Rule).
			Str("severity", string(v.Severity)).
			Str("entity", v.Entity).
			Str("entity_id", v.EntityID).
			Msg(v.Message)
	}
	if err != nil {
		t.rollback()
		return nil, err
	}

	publish = t.commit()
	h.logger.Debug().Str("op", op).Strs("stores", touched).Msg("operation committed")
	return publish, nil
}
