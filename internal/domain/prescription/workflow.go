package prescription

import (
	"strings"
	"time"

	"github.com/ehr/wardstate/internal/platform/apperr"
)

// Propose attaches a pending suggestion to p. It fails when a suggestion is
// already pending or the proposed medicine is empty. The prescription's
// current status is recorded so a rejection can restore it.
func Propose(p *Prescription, s Suggestion, now time.Time) error {
	if p.SuggestionPending() {
		return apperr.Validation("propose suggestion", "prescription %s already has a pending suggestion", p.ID)
	}
	if strings.TrimSpace(s.Medicine) == "" {
		return apperr.Validation("propose suggestion", "suggested medicine is required")
	}
	if p.Invoiced {
		return apperr.Validation("propose suggestion", "prescription %s is already invoiced", p.ID)
	}
	s.Status = SuggestionPending
	s.RejectionReason = ""
	s.PriorStatus = p.Status
	s.ProposedAt = now
	s.ResolvedAt = nil
	p.Suggestion = &s
	return nil
}

// Resolve applies a doctor's decision to the pending suggestion on p.
// Accepting swaps in the suggested medicine and dosage and marks the
// prescription Filled. Rejecting requires a reason, keeps the original
// medicine and restores the status held before the suggestion.
func Resolve(p *Prescription, decision Decision, reason string, now time.Time) error {
	if !p.SuggestionPending() {
		return apperr.Validation("resolve suggestion", "prescription %s has no pending suggestion", p.ID)
	}
	s := *p.Suggestion
	switch decision {
	case DecisionAccept:
		p.Medicine = s.Medicine
		if s.Dosage != "" {
			p.Dosage = s.Dosage
		}
		p.Status = StatusFilled
		s.Status = SuggestionAccepted
	case DecisionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return apperr.Validation("resolve suggestion", "a rejection reason is required")
		}
		p.Status = s.PriorStatus
		if p.Status == "" {
			p.Status = StatusPending
		}
		s.Status = SuggestionRejected
		s.RejectionReason = reason
	default:
		return apperr.Validation("resolve suggestion", "invalid decision: %s", decision)
	}
	s.ResolvedAt = &now
	p.Suggestion = &s
	return nil
}
