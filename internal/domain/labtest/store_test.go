package labtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

func newTestStore(t *testing.T) (*Store, LabTest) {
	t.Helper()
	s := NewStore(idgen.Sequence("lab"), nil)
	lt, err := s.Add(LabTest{PatientID: "p-1", TestName: "CBC"})
	require.NoError(t, err)
	return s, lt
}

func TestStore_Add(t *testing.T) {
	s, lt := newTestStore(t)
	assert.Equal(t, "lab-1", lt.ID)
	assert.Equal(t, StatusPending, lt.Status)

	_, err := s.Add(LabTest{PatientID: "p-1"})
	assert.True(t, apperr.IsValidation(err))
	_, err = s.Add(LabTest{PatientID: "p-1", TestName: "CBC", Status: StatusCompleted})
	assert.True(t, apperr.IsValidation(err))
	_, err = s.Add(LabTest{PatientID: "p-1", TestName: "CBC", VisitID: "v-1"})
	assert.True(t, apperr.IsValidation(err))
}

func TestStore_StatusIsForwardOnly(t *testing.T) {
	s, lt := newTestStore(t)

	outcome, err := s.UpdateStatus(lt.ID, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	_, err = s.UpdateStatus(lt.ID, StatusPending)
	assert.True(t, apperr.IsValidation(err))

	_, err = s.UpdateStatus(lt.ID, "Lost")
	assert.True(t, apperr.IsValidation(err))

	got, _ := s.Get(lt.ID)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestStore_RecordResults(t *testing.T) {
	s, lt := newTestStore(t)
	var notified int
	s.SubscribeFunc(func([]LabTest) { notified++ })

	outcome, err := s.RecordResults(lt.ID, "Hb 13.5 g/dL")
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)
	assert.Equal(t, 1, notified)

	got, _ := s.Get(lt.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Hb 13.5 g/dL", got.Results)
	assert.Len(t, s.ByStatus(StatusCompleted), 1)

	outcome, err = s.RecordResults("missing", "x")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
	assert.Equal(t, 1, notified)
}

func TestStore_InvoicedGuards(t *testing.T) {
	s, lt := newTestStore(t)
	_, err := s.SetPrice(lt.ID, 25)
	require.NoError(t, err)

	_, err = s.Update(lt.ID, func(t *LabTest) error {
		t.Invoiced = true
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	d := s.Begin()
	_, _ = d.Update(lt.ID, func(t *LabTest) error {
		t.Invoiced = true
		return nil
	})
	d.Commit()()

	_, err = s.SetPrice(lt.ID, 30)
	assert.True(t, apperr.IsValidation(err))
	_, err = s.Remove(lt.ID)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, s.Billable("p-1"))
}
