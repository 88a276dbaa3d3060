package bed

// Status is the occupancy state of a bed.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusOccupied  Status = "Occupied"
)

// Bed is a single bed. RoomNumber groups beds into rooms; there is no
// separate room store.
type Bed struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number"`
	BedNumber  string `json:"bed_number"`
	Ward       string `json:"ward,omitempty"`
	Status     Status `json:"status"`
	PatientID  string `json:"patient_id,omitempty"`
}

// Label renders the bed as "Room 101/Bed A".
func (b Bed) Label() string {
	return "Room " + b.RoomNumber + "/Bed " + b.BedNumber
}

// Occupied reports whether the bed is in use.
func (b Bed) Occupied() bool { return b.Status == StatusOccupied }

// Clone returns a copy of b.
func Clone(b Bed) Bed { return b }
