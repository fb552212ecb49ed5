package domain

import "time"

const (
	StatusAvailable   = "AVAILABLE"
	StatusBooked      = "BOOKED"
	StatusMaintenance = "MAINTENANCE"
)

// Room invariant: 0 <= CountCapacity <= Capacity; AVAILABLE only while
// CountCapacity < Capacity. Version backs the optimistic occupancy updates.
type Room struct {
	ID            string `gorm:"primaryKey"`
	BuildingID    string `gorm:"index"`
	Name          string
	Price         int64
	Capacity      int32
	CountCapacity int32
	Status        string `gorm:"index"` // AVAILABLE|BOOKED|MAINTENANCE
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reserve takes one occupancy slot. Rooms that are not AVAILABLE are left
// untouched: another booking filled the room, or it is under maintenance.
func (r *Room) Reserve() bool {
	if r.Status != StatusAvailable {
		return false
	}
	r.CountCapacity++
	if r.CountCapacity >= r.Capacity {
		r.Status = StatusBooked
	}
	return true
}

// Release frees one occupancy slot of a BOOKED room.
func (r *Room) Release() bool {
	if r.Status != StatusBooked {
		return false
	}
	if r.CountCapacity > 0 {
		r.CountCapacity--
	}
	r.Status = StatusAvailable
	return true
}
