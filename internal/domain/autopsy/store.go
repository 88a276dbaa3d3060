// Package autopsy holds the autopsy case store.
package autopsy

import (
	"strings"
	"time"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the autopsy store.
const Kind = "autopsy_cases"

// Store owns the autopsy cases.
type Store struct {
	*store.Store[Case]
	now func() time.Time
}

// NewStore constructs an empty autopsy store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		Store: store.New(store.Config[Case]{
			Kind:    Kind,
			ID:      func(c *Case) *string { return &c.ID },
			Clone:   Clone,
			IDs:     ids,
			Guard:   guard{},
			Metrics: metrics,
		}),
		now: now,
	}
}

type guard struct{}

func (guard) CheckAdd(_ []Case, c Case) error {
	if strings.TrimSpace(c.SubjectName) == "" {
		return apperr.Validation("open autopsy case", "subject name is required")
	}
	if c.Status != StatusAwaiting {
		return apperr.Validation("open autopsy case", "new cases start as %s", StatusAwaiting)
	}
	return nil
}

func (guard) CheckUpdate(_ []Case, before, after Case) error {
	if !after.Status.Valid() {
		return apperr.Validation("update autopsy case", "invalid status: %s", after.Status)
	}
	if before.Status == StatusCompleted {
		return apperr.Validation("update autopsy case", "case %s is completed", before.ID)
	}
	if statusRank[after.Status] < statusRank[before.Status] {
		return apperr.Validation("update autopsy case", "status cannot move from %s back to %s", before.Status, after.Status)
	}
	if after.Status == StatusCompleted && strings.TrimSpace(after.Report) == "" {
		return apperr.Validation("update autopsy case", "a case cannot be completed without a report")
	}
	if before.PatientID != after.PatientID {
		return apperr.Validation("update autopsy case", "subject cannot be changed")
	}
	return nil
}

func (guard) CheckRemove(_ []Case, c Case) error {
	if c.Status == StatusCompleted {
		return apperr.Validation("remove autopsy case", "case %s is completed", c.ID)
	}
	return nil
}

// Open records a new case awaiting autopsy.
func (s *Store) Open(c Case) (Case, error) {
	c.Status = StatusAwaiting
	c.Report = ""
	c.CompletedAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	return s.Add(c)
}

// UpdateNotes records the pathologist and their working notes.
func (s *Store) UpdateNotes(id, pathologist, notes string) (store.Outcome, error) {
	return s.Update(id, func(c *Case) error {
		if pathologist != "" {
			c.Pathologist = pathologist
		}
		c.PathologistNotes = notes
		return nil
	})
}

// AttachReport stores report text and moves the case to Report Pending.
func (s *Store) AttachReport(id, report string) (store.Outcome, error) {
	if strings.TrimSpace(report) == "" {
		return store.Rejected, apperr.Validation("attach autopsy report", "report is required")
	}
	return s.Update(id, func(c *Case) error {
		c.Report = report
		c.Status = StatusReportPending
		return nil
	})
}

// Complete signs off a case that has a report.
func (s *Store) Complete(id string) (store.Outcome, error) {
	return s.Update(id, func(c *Case) error {
		now := s.now()
		c.Status = StatusCompleted
		c.CompletedAt = &now
		return nil
	})
}

// ForPatient returns the case opened for a patient, if any.
func (s *Store) ForPatient(patientID string) (Case, bool) {
	found := s.Filter(func(c Case) bool { return c.PatientID != "" && c.PatientID == patientID })
	if len(found) == 0 {
		return Case{}, false
	}
	return found[0], true
}
