package patient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

func newTestStore() *Store {
	return NewStore(idgen.Sequence("p"), nil)
}

func seedWithVisit(t *testing.T, s *Store) (Patient, Visit) {
	t.Helper()
	p, err := s.Add(Patient{Name: "Ada Obi", Condition: ConditionStable, AssignedDoctor: "Dr. Reyes"})
	require.NoError(t, err)

	visit := Visit{ID: "v-1", Date: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), Event: "Consultation", Doctor: "Dr. Reyes"}
	d := s.Begin()
	_, err = d.Update(p.ID, func(p *Patient) error {
		p.MedicalHistory = append(p.MedicalHistory, visit)
		return nil
	})
	require.NoError(t, err)
	d.Commit()()

	p, _ = s.Get(p.ID)
	return p, visit
}

func TestStore_AddValidation(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name string
		in   Patient
	}{
		{"missing name", Patient{}},
		{"invalid condition", Patient{Name: "x", Condition: "Groggy"}},
		{"deceased", Patient{Name: "x", Condition: ConditionDeceased}},
		{"preset admission", Patient{Name: "x", Admission: Admission{IsAdmitted: true, RoomNumber: "101", BedNumber: "A"}}},
		{"preset history", Patient{Name: "x", MedicalHistory: []Visit{{ID: "v"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(tt.in)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_UpdateGuard(t *testing.T) {
	s := newTestStore()
	p, _ := seedWithVisit(t, s)

	outcome, err := s.Update(p.ID, func(p *Patient) error {
		p.Condition = ConditionCritical
		p.Contact = "555-0101"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	_, err = s.Update(p.ID, func(p *Patient) error {
		p.Admission.IsAdmitted = true
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.Update(p.ID, func(p *Patient) error {
		p.Condition = ConditionDeceased
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.Update(p.ID, func(p *Patient) error {
		p.MedicalHistory = nil
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.Update(p.ID, func(p *Patient) error {
		p.MedicalHistory[0].Event = "Surgery"
		return nil
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestStore_RemoveIsRejected(t *testing.T) {
	s := newTestStore()
	p, err := s.Add(Patient{Name: "Ada Obi"})
	require.NoError(t, err)

	_, err = s.Remove(p.ID)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 1, s.Len())

	outcome, err := s.Remove("unknown")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
}

func TestStore_EditVisitDetails(t *testing.T) {
	s := newTestStore()
	p, visit := seedWithVisit(t, s)

	outcome, err := s.EditVisitDetails(p.ID, visit.ID, "BP 120/80, follow up in 2 weeks")
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	got, _ := s.Get(p.ID)
	v, ok := got.Visit(visit.ID)
	require.True(t, ok)
	assert.Equal(t, "BP 120/80, follow up in 2 weeks", v.Details)

	notified := 0
	s.SubscribeFunc(func([]Patient) { notified++ })

	outcome, err = s.EditVisitDetails(p.ID, "no-such-visit", "x")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)

	outcome, err = s.EditVisitDetails("no-such-patient", visit.ID, "x")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
	assert.Equal(t, 0, notified)
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now()
	p := Patient{
		Name:           "x",
		MedicalHistory: []Visit{{ID: "v"}},
		Admission:      Admission{IsAdmitted: true, AdmittedAt: &now},
		DeceasedAt:     &now,
	}
	cp := Clone(p)
	cp.MedicalHistory[0].ID = "changed"
	*cp.Admission.AdmittedAt = now.Add(time.Hour)
	*cp.DeceasedAt = now.Add(time.Hour)

	assert.Equal(t, "v", p.MedicalHistory[0].ID)
	assert.Equal(t, now, *p.Admission.AdmittedAt)
	assert.Equal(t, now, *p.DeceasedAt)
}

func TestAdmittedBy(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add(Patient{Name: "A", AssignedDoctor: "Dr. Reyes"})
	_, _ = s.Add(Patient{Name: "B", AssignedDoctor: "Dr. Reyes"})

	d := s.Begin()
	_, _ = d.Update(a.ID, func(p *Patient) error {
		p.Admission = Admission{IsAdmitted: true, RoomNumber: "101", BedNumber: "A"}
		return nil
	})
	d.Commit()()

	got := s.AdmittedBy("Dr. Reyes")
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.True(t, got[0].OccupiesBed("101", "A"))
}
