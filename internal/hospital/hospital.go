// Package hospital is the application context of the ward console. A
// Hospital owns one instance of every entity store and runs the operations
// that must change several stores together, such as bed assignment,
// invoicing and the prescription suggestion workflow.
package hospital

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/domain/rules"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/drafting"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// DefaultDraftTimeout bounds a single call to the drafting collaborator.
const DefaultDraftTimeout = 30 * time.Second

// Hospital owns the stores. The stores are safe to read, subscribe to and
// mutate directly; their guards reject any direct edit that would need a
// coordinated Hospital operation instead.
type Hospital struct {
	Patients       *patient.Store
	Beds           *bed.Store
	Prescriptions  *prescription.Store
	LabTests       *labtest.Store
	Invoices       *billing.Store
	Medications    *medication.Store
	Communications *communication.Store
	Messages       *messaging.Store
	Autopsies      *autopsy.Store

	// mu serializes the operations that hold more than one store lock.
	mu      sync.Mutex
	ids     idgen.Generator
	engine  *rules.Engine
	drafter drafting.Drafter
	logger  zerolog.Logger
	metrics telemetry.Recorder
	now     func() time.Time
}

type options struct {
	ids          idgen.Generator
	engine       *rules.Engine
	drafter      drafting.Drafter
	draftTimeout time.Duration
	logger       zerolog.Logger
	metrics      telemetry.Recorder
	now          func() time.Time
}

// Option configures a Hospital.
type Option func(*options)

// WithIDs sets the id generator shared by every store. Defaults to UUIDs.
func WithIDs(ids idgen.Generator) Option {
	return func(o *options) { o.ids = ids }
}

// WithRules replaces the default invariant engine.
func WithRules(e *rules.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithDrafter sets the drafting collaborator. Defaults to the offline
// template drafter.
func WithDrafter(d drafting.Drafter) Option {
	return func(o *options) { o.drafter = d }
}

// WithDraftTimeout bounds each drafting call.
func WithDraftTimeout(d time.Duration) Option {
	return func(o *options) { o.draftTimeout = d }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New constructs a Hospital with empty stores.
func New(opts ...Option) *Hospital {
	o := options{
		ids:          idgen.UUID(),
		engine:       rules.NewDefaultEngine(),
		drafter:      drafting.TemplateDrafter{},
		draftTimeout: DefaultDraftTimeout,
		logger:       zerolog.Nop(),
		metrics:      telemetry.Nop{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Hospital{
		Patients:       patient.NewStore(o.ids, o.metrics),
		Beds:           bed.NewStore(o.ids, o.metrics),
		Prescriptions:  prescription.NewStore(o.ids, o.metrics),
		LabTests:       labtest.NewStore(o.ids, o.metrics),
		Invoices:       billing.NewStore(o.ids, o.metrics, o.now),
		Medications:    medication.NewStore(o.ids, o.metrics),
		Communications: communication.NewStore(o.ids, o.metrics, o.now),
		Messages:       messaging.NewStore(o.ids, o.metrics, o.now),
		Autopsies:      autopsy.NewStore(o.ids, o.metrics, o.now),

		ids:     o.ids,
		engine:  o.engine,
		drafter: drafting.Guarded(o.drafter, o.draftTimeout, o.metrics),
		logger:  o.logger.With().Str("component", "hospital").Logger(),
		metrics: o.metrics,
		now:     o.now,
	}
}

// Reset empties every store as one operation and then notifies each
// store's listeners. It serializes with the cross-entity operations, so no
// listener sees one store cleared while another still holds entities.
func (h *Hospital) Reset() {
	err := h.transact(context.Background(), "reset", func(t *tx) error {
		t.meds()
		t.comms()
		t.cases()
		for _, d := range t.drafts {
			d.Clear()
		}
		return nil
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("reset failed")
		return
	}
	h.logger.Debug().Msg("stores reset")
}

// RegisterPatient adds a new patient, stamping the registration time.
func (h *Hospital) RegisterPatient(p patient.Patient) (patient.Patient, error) {
	if p.Condition == "" {
		p.Condition = patient.ConditionStable
	}
	p.RegisteredAt = h.now()
	return h.Patients.Add(p)
}

func unknown(op, entity, id string) error {
	return apperr.Validation(op, "%s %q not found", entity, id)
}
