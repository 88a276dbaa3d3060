// Package rules evaluates the invariants that span several stores. Rules
// run over a staged View before a coordinated operation commits, and any
// blocking violation aborts the operation.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
)

// View is a read-only snapshot of the collections the rules inspect.
type View interface {
	Patients() []patient.Patient
	Beds() []bed.Bed
	Prescriptions() []prescription.Prescription
	LabTests() []labtest.LabTest
	Invoices() []billing.Invoice
	Messages() []messaging.Message
}

// Severity captures how a violation affects the operation.
type Severity string

const (
	// SeverityBlock aborts the operation.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not abort.
	SeverityWarn Severity = "warn"
)

// Violation is a single rule finding.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Entity   string   `json:"entity"`
	EntityID string   `json:"entity_id"`
}

// Result aggregates violations.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends the violations of other.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns only the blocking violations.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// ViolationError is returned when blocking violations are present. It is
// classified as a validation failure.
type ViolationError struct {
	Op     string
	Result Result
}

func (e ViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Blocking() {
		msgs = append(msgs, v.Message)
	}
	prefix := "operation blocked by rules"
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if len(msgs) == 0 {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(msgs, "; "))
}

// IsValidation marks ViolationError as a validation failure.
func (e ViolationError) IsValidation() bool { return true }

// Rule is one invariant check.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view View) (Result, error)
}

// Engine runs registered rules in order.
type Engine struct {
	rules []Rule
}

// NewEngine constructs an engine with no rules.
func NewEngine() *Engine {
	return &Engine{}
}

// NewDefaultEngine builds an engine with the built-in hospital invariants.
func NewDefaultEngine() *Engine {
	e := NewEngine()
	e.Register(NewBedOccupancyRule())
	e.Register(NewInvoiceUniquenessRule())
	e.Register(NewSuggestionLockRule())
	e.Register(NewVisitLinkageRule())
	return e
}

// Register appends a rule to the engine.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the names of the registered rules.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate executes all registered rules and aggregates their results.
func (e *Engine) Evaluate(ctx context.Context, view View) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Check evaluates the rules and returns a ViolationError when any violation
// blocks. The full result is returned either way.
func (e *Engine) Check(ctx context.Context, op string, view View) (Result, error) {
	res, err := e.Evaluate(ctx, view)
	if err != nil {
		return res, err
	}
	if res.HasBlocking() {
		return res, ViolationError{Op: op, Result: res}
	}
	return res, nil
}

func block(rule, entity, id, format string, args ...any) Violation {
	return Violation{
		Rule:     rule,
		Severity: SeverityBlock,
		Message:  fmt.Sprintf(format, args...),
		Entity:   entity,
		EntityID: id,
	}
}
