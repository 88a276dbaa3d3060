// Package bed holds the bed store. Occupancy only changes through the
// hospital's assignment and release operations, which keep the occupying
// patient's admission in step.
package bed

import (
	"sort"

	"github.com/ehr/wardstate/internal/domain/store"
	"github.com/ehr/wardstate/internal/platform/apperr"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Kind is the collection name of the bed store.
const Kind = "beds"

// Store owns the bed collection.
type Store struct {
	*store.Store[Bed]
}

// NewStore constructs an empty bed store.
func NewStore(ids idgen.Generator, metrics telemetry.Recorder) *Store {
	return &Store{Store: store.New(store.Config[Bed]{
		Kind:    Kind,
		ID:      func(b *Bed) *string { return &b.ID },
		Clone:   Clone,
		IDs:     ids,
		Guard:   guard{},
		Metrics: metrics,
	})}
}

type guard struct{}

func (guard) CheckAdd(items []Bed, b Bed) error {
	if b.RoomNumber == "" || b.BedNumber == "" {
		return apperr.Validation("add bed", "room number and bed number are required")
	}
	if b.Status != "" && b.Status != StatusAvailable {
		return apperr.Validation("add bed", "new beds must be %s", StatusAvailable)
	}
	if b.PatientID != "" {
		return apperr.Validation("add bed", "new beds cannot reference a patient")
	}
	if FindByLocation(items, b.RoomNumber, b.BedNumber) != nil {
		return apperr.Validation("add bed", "%s already exists", b.Label())
	}
	return nil
}

func (guard) CheckUpdate(items []Bed, before, after Bed) error {
	if before.Status != after.Status || before.PatientID != after.PatientID {
		return apperr.Validation("update bed", "occupancy of %s changes through assignment or release", before.Label())
	}
	if after.RoomNumber == "" || after.BedNumber == "" {
		return apperr.Validation("update bed", "room number and bed number are required")
	}
	if before.Occupied() && (before.RoomNumber != after.RoomNumber || before.BedNumber != after.BedNumber) {
		return apperr.Validation("update bed", "%s is occupied and cannot be relocated", before.Label())
	}
	if other := FindByLocation(items, after.RoomNumber, after.BedNumber); other != nil && other.ID != after.ID {
		return apperr.Validation("update bed", "%s already exists", after.Label())
	}
	return nil
}

func (guard) CheckRemove(_ []Bed, b Bed) error {
	if b.Occupied() {
		return apperr.Validation("delete bed", "%s is occupied", b.Label())
	}
	return nil
}

// Add stores b as an Available bed.
func (s *Store) Add(b Bed) (Bed, error) {
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	return s.Store.Add(b)
}

// Available returns the beds that can be assigned.
func (s *Store) Available() []Bed {
	return s.Filter(func(b Bed) bool { return b.Status == StatusAvailable })
}

// FindByLocation returns the bed at room/bed within items, or nil.
func FindByLocation(items []Bed, room, bedNumber string) *Bed {
	for i := range items {
		if items[i].RoomNumber == room && items[i].BedNumber == bedNumber {
			return &items[i]
		}
	}
	return nil
}

// FindByPatient returns the bed occupied by patientID within items, or nil.
func FindByPatient(items []Bed, patientID string) *Bed {
	for i := range items {
		if items[i].Occupied() && items[i].PatientID == patientID {
			return &items[i]
		}
	}
	return nil
}

// Room groups the beds sharing a room number.
type Room struct {
	RoomNumber string `json:"room_number"`
	Beds       []Bed  `json:"beds"`
	Occupied   int    `json:"occupied"`
	Available  int    `json:"available"`
}

// GroupByRoom groups beds into rooms ordered by room number; beds keep their
// relative order.
func GroupByRoom(beds []Bed) []Room {
	index := make(map[string]int)
	var rooms []Room
	for _, b := range beds {
		i, ok := index[b.RoomNumber]
		if !ok {
			i = len(rooms)
			index[b.RoomNumber] = i
			rooms = append(rooms, Room{RoomNumber: b.RoomNumber})
		}
		rooms[i].Beds = append(rooms[i].Beds, b)
		if b.Occupied() {
			rooms[i].Occupied++
		} else {
			rooms[i].Available++
		}
	}
	sort.SliceStable(rooms, func(a, b int) bool { return rooms[a].RoomNumber < rooms[b].RoomNumber })
	return rooms
}
