// Package drafting is the boundary to the text-generation collaborator that
// drafts autopsy reports and referral letters. The hospital only ever talks
// to a Drafter; whatever sits behind it is outside the domain layer.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind names the document being drafted.
type Kind string

const (
	KindAutopsyReport  Kind = "autopsy_report"
	KindReferralLetter Kind = "referral_letter"
)

// Request describes a draft. Facts are the entity fields the draft is
// based on, keyed by label.
type Request struct {
	Kind    Kind
	Subject string
	Facts   map[string]string
	// Instructions is optional free text from the requesting clinician.
	Instructions string
}

// Drafter produces draft text.
type Drafter interface {
	Draft(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Drafter.
type Func func(ctx context.Context, req Request) (string, error)

// Draft calls f.
func (f Func) Draft(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// ErrEmptyDraft is reported when the collaborator returns no text.
var ErrEmptyDraft = errors.New("empty draft")

// Guarded wraps d so that every failure, a timeout, a panic or an empty
// result comes back as an apperr collaborator failure. A zero timeout
// leaves the caller's deadline in charge. There are no retries.
func Guarded(d Drafter, timeout time.Duration, metrics telemetry.Recorder) Drafter {
	if metrics == nil {
		metrics = telemetry.Nop{}
	}
	return guarded{next: d, timeout: timeout, metrics: metrics}
}

type guarded struct {
	next    Drafter
	timeout time.Duration
	metrics telemetry.Recorder
}

type draftResult struct {
	text string
	err  error
}

func (g guarded) Draft(ctx context.Context, req Request) (string, error) {
	op := "draft " + string(req.Kind)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	done := make(chan draftResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- draftResult{err: fmt.Errorf("drafter panicked: %v", r)}
			}
		}()
		text, err := g.next.Draft(ctx, req)
		done <- draftResult{text: text, err: err}
	}()

	var res draftResult
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-done:
		if res.err == nil && strings.TrimSpace(res.text) == "" {
			res.err = ErrEmptyDraft
		}
	}
	if res.err != nil {
		g.metrics.RecordCollaboratorFailure(ctx, op)
		return "", apperr.Collaborator(op, res.err)
	}
	return res.text, nil
}

// TemplateDrafter drafts deterministic text from the request facts without
// any external service. The CLI uses it when no generator is configured.
type TemplateDrafter struct{}

// Draft renders req as a plain-text document.
func (TemplateDrafter) Draft(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	switch req.Kind {
	case KindAutopsyReport:
		fmt.Fprintf(&b, "Autopsy report: %s\n\n", req.Subject)
	case KindReferralLetter:
		fmt.Fprintf(&b, "Referral letter for %s\n\n", req.Subject)
	default:
		return "", fmt.Errorf("unsupported draft kind %q", req.Kind)
	}

	keys := make([]string, 0, len(req.Facts))
	for k := range req.Facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(req.Facts[k]); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	if req.Instructions != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(req.Instructions))
	}
	return b.String(), nil
}
