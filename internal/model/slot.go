package model

// SlotKey natural key of a slot: at most one slot per key per provider per run
type SlotKey struct {
	Date     string
	Time     string
	Location string
}

// CanonicalSlot provider-independent availability of one bookable unit
type CanonicalSlot struct {
	Date     string `json:"date"`     // YYYY-MM-DD
	Time     string `json:"time"`     // HH:MM:SS, 24-hour
	Location string `json:"location"` // venueId/activityId or venueId
	Spaces   int    `json:"spaces"`   // free bookable units, >= 0
}

func (s CanonicalSlot) Key() SlotKey {
	return SlotKey{Date: s.Date, Time: s.Time, Location: s.Location}
}

// StoredSlot persisted snapshot row, one per natural key
type StoredSlot struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Date     string `gorm:"column:date;type:varchar(10);not null;uniqueIndex:uq_slot_key"`
	Time     string `gorm:"column:time;type:varchar(8);not null;uniqueIndex:uq_slot_key"`
	Location string `gorm:"column:location;type:varchar(256);not null;uniqueIndex:uq_slot_key"`
	Spaces   int    `gorm:"column:spaces;type:int;not null;default:0"`
}

func (StoredSlot) TableName() string { return "court_availability" }

func (s StoredSlot) Canonical() CanonicalSlot {
	return CanonicalSlot{Date: s.Date, Time: s.Time, Location: s.Location, Spaces: s.Spaces}
}

func (s StoredSlot) Key() SlotKey {
	return SlotKey{Date: s.Date, Time: s.Time, Location: s.Location}
}

// NewStoredSlot snapshot row for a canonical slot
func NewStoredSlot(s CanonicalSlot) StoredSlot {
	return StoredSlot{Date: s.Date, Time: s.Time, Location: s.Location, Spaces: s.Spaces}
}

// TransitionSlot a slot that went from fully booked to bookable between two runs; never persisted
type TransitionSlot struct {
	CanonicalSlot
	PreviousSpaces int `json:"previous_spaces"`
	CurrentSpaces  int `json:"current_spaces"`
}
