// Package telemetry records store and workflow metrics through the
// OpenTelemetry metric API. Without a meter provider installed by the host
// the global no-op provider is used and recording costs nothing.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ehr/wardstate"

// Recorder receives the events the state layer reports.
type Recorder interface {
	RecordMutation(ctx context.Context, store, action string)
	RecordNotification(ctx context.Context, store string, listeners int)
	RecordViolation(ctx context.Context, rule string)
	RecordCollaboratorFailure(ctx context.Context, op string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordMutation(context.Context, string, string)    {}
func (Nop) RecordNotification(context.Context, string, int)   {}
func (Nop) RecordViolation(context.Context, string)           {}
func (Nop) RecordCollaboratorFailure(context.Context, string) {}

// Metrics holds the otel instruments.
type Metrics struct {
	Mutations            metric.Int64Counter
	Notifications        metric.Int64Counter
	ListenerInvocations  metric.Int64Counter
	RuleViolations       metric.Int64Counter
	CollaboratorFailures metric.Int64Counter
}

// NewMetrics creates the instruments on the given provider, or on the
// global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	mutations, err := meter.Int64Counter(
		"wardstate.store.mutations",
		metric.WithDescription("Committed store mutations"),
	)
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter(
		"wardstate.store.notifications",
		metric.WithDescription("Notification passes published by stores"),
	)
	if err != nil {
		return nil, err
	}
	invocations, err := meter.Int64Counter(
		"wardstate.store.listener_invocations",
		metric.WithDescription("Listener callbacks invoked"),
	)
	if err != nil {
		return nil, err
	}
	violations, err := meter.Int64Counter(
		"wardstate.rules.violations",
		metric.WithDescription("Blocking invariant violations"),
	)
	if err != nil {
		return nil, err
	}
	collaborator, err := meter.Int64Counter(
		"wardstate.collaborator.failures",
		metric.WithDescription("Failed calls to external collaborators"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Mutations:            mutations,
		Notifications:        notifications,
		ListenerInvocations:  invocations,
		RuleViolations:       violations,
		CollaboratorFailures: collaborator,
	}, nil
}

func (m *Metrics) RecordMutation(ctx context.Context, store, action string) {
	m.Mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("action", action),
	))
}

func (m *Metrics) RecordNotification(ctx context.Context, store string, listeners int) {
	attrs := metric.WithAttributes(attribute.String("store", store))
	m.Notifications.Add(ctx, 1, attrs)
	m.ListenerInvocations.Add(ctx, int64(listeners), attrs)
}

func (m *Metrics) RecordViolation(ctx context.Context, rule string) {
	m.RuleViolations.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

func (m *Metrics) RecordCollaboratorFailure(ctx context.Context, op string) {
	m.CollaboratorFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
