package communication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

var t0 = time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore(idgen.Sequence("c"), nil, func() time.Time { return t0 })
}

func TestStore_Queue(t *testing.T) {
	s := newTestStore()
	c, err := s.Queue(Communication{PatientID: "p-1", Method: MethodSMS, Message: "Your results are ready", Status: StatusSent})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, t0, c.CreatedAt)
	assert.Len(t, s.Pending(), 1)

	for name, bad := range map[string]Communication{
		"no patient": {Method: MethodSMS, Message: "x"},
		"bad method": {PatientID: "p-1", Method: "Fax", Message: "x"},
		"no message": {PatientID: "p-1", Method: MethodCall, Message: " "},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Queue(bad)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestStore_MarkSent(t *testing.T) {
	s := newTestStore()
	c, _ := s.Queue(Communication{PatientID: "p-1", Method: MethodEmail, Message: "Reminder"})

	outcome, err := s.MarkSent(c.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)

	got, _ := s.Get(c.ID)
	assert.Equal(t, StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.Empty(t, s.Pending())

	_, err = s.MarkSent(c.ID)
	assert.True(t, apperr.IsValidation(err))

	_, err = s.Update(c.ID, func(c *Communication) error {
		c.Status = StatusPending
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	outcome, err = s.MarkSent("missing")
	require.NoError(t, err)
	assert.Equal(t, store.NotFound, outcome)
	assert.Len(t, s.ForPatient("p-1"), 1)
}
