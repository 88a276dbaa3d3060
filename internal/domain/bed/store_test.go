package bed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
)

func newTestStore() *Store {
	return NewStore(idgen.Sequence("bed"), nil)
}

func occupy(t *testing.T, s *Store, id, patientID string) {
	t.Helper()
	d := s.Begin()
	_, err := d.Update(id, func(b *Bed) error {
		b.Status = StatusOccupied
		b.PatientID = patientID
		return nil
	})
	require.NoError(t, err)
	d.Commit()()
}

func TestStore_AddDefaultsToAvailable(t *testing.T) {
	s := newTestStore()
	b, err := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})
	require.NoError(t, err)

	assert.Equal(t, StatusAvailable, b.Status)
	assert.Equal(t, "Room 101/Bed A", b.Label())
}

func TestStore_AddValidation(t *testing.T) {
	s := newTestStore()
	_, err := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})
	require.NoError(t, err)

	for name, b := range map[string]Bed{
		"duplicate":      {RoomNumber: "101", BedNumber: "A"},
		"missing room":   {BedNumber: "B"},
		"preset status":  {RoomNumber: "101", BedNumber: "B", Status: StatusOccupied},
		"preset patient": {RoomNumber: "101", BedNumber: "C", PatientID: "p-1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Add(b)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestStore_UpdateCannotChangeOccupancy(t *testing.T) {
	s := newTestStore()
	b, _ := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})

	_, err := s.Update(b.ID, func(b *Bed) error {
		b.Status = StatusOccupied
		return nil
	})
	assert.True(t, apperr.IsValidation(err))

	outcome, err := s.Update(b.ID, func(b *Bed) error {
		b.Ward = "Cardiology"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)
}

func TestStore_OccupiedBedCannotMove(t *testing.T) {
	s := newTestStore()
	b, _ := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})
	occupy(t, s, b.ID, "p-1")

	_, err := s.Update(b.ID, func(b *Bed) error {
		b.RoomNumber = "202"
		return nil
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestStore_DeleteOccupiedBedRejected(t *testing.T) {
	s := newTestStore()
	b, _ := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})
	occupy(t, s, b.ID, "p-1")

	_, err := s.Remove(b.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 1, s.Len())

	free, _ := s.Add(Bed{RoomNumber: "101", BedNumber: "B"})
	outcome, err := s.Remove(free.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Removed, outcome)
}

func TestStore_Available(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add(Bed{RoomNumber: "101", BedNumber: "A"})
	_, _ = s.Add(Bed{RoomNumber: "101", BedNumber: "B"})
	occupy(t, s, a.ID, "p-1")

	got := s.Available()
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].BedNumber)
}

func TestGroupByRoom(t *testing.T) {
	beds := []Bed{
		{ID: "1", RoomNumber: "202", BedNumber: "A", Status: StatusAvailable},
		{ID: "2", RoomNumber: "101", BedNumber: "A", Status: StatusOccupied, PatientID: "p"},
		{ID: "3", RoomNumber: "101", BedNumber: "B", Status: StatusAvailable},
	}

	rooms := GroupByRoom(beds)

	require.Len(t, rooms, 2)
	assert.Equal(t, "101", rooms[0].RoomNumber)
	assert.Equal(t, 1, rooms[0].Occupied)
	assert.Equal(t, 1, rooms[0].Available)
	assert.Equal(t, []string{"2", "3"}, []string{rooms[0].Beds[0].ID, rooms[0].Beds[1].ID})
	assert.Equal(t, "202", rooms[1].RoomNumber)
}

func TestFindHelpers(t *testing.T) {
	beds := []Bed{
		{ID: "1", RoomNumber: "101", BedNumber: "A", Status: StatusOccupied, PatientID: "p-1"},
		{ID: "2", RoomNumber: "101", BedNumber: "B", Status: StatusAvailable},
	}
	assert.Equal(t, "2", FindByLocation(beds, "101", "B").ID)
	assert.Nil(t, FindByLocation(beds, "999", "Z"))
	assert.Equal(t, "1", FindByPatient(beds, "p-1").ID)
	assert.Nil(t, FindByPatient(beds, "p-2"))
}
