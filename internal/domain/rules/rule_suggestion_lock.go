package rules

import (
	"context"

	"github.com/ehr/wardstate/internal/domain/prescription"
)

// NewSuggestionLockRule requires a prescription with a pending suggestion
// to keep the status it had when the suggestion was made.
func NewSuggestionLockRule() Rule {
	return suggestionLockRule{}
}

type suggestionLockRule struct{}

func (suggestionLockRule) Name() string { return "suggestion_lock" }

func (r suggestionLockRule) Evaluate(_ context.Context, view View) (Result, error) {
	res := Result{}
	for _, p := range view.Prescriptions() {
		if !p.SuggestionPending() {
			continue
		}
		if p.Status != p.Suggestion.PriorStatus {
			res.Violations = append(res.Violations, block(r.Name(), prescription.Kind, p.ID,
				"prescription %s changed status to %s while a suggestion is pending", p.ID, p.Status))
		}
		if p.Invoiced {
			res.Violations = append(res.Violations, block(r.Name(), prescription.Kind, p.ID,
				"prescription %s was invoiced while a suggestion is pending", p.ID))
		}
	}
	return res, nil
}
