package domain

import "time"

const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCanceled  = "CANCELED"
	StatusCompleted = "COMPLETED"
)

type Booking struct {
	ID        string          `gorm:"primaryKey"`
	UserID    string          `gorm:"index"`
	Status    string          `gorm:"index"` // PENDING|CONFIRMED|CANCELED|COMPLETED
	StartDate time.Time       `gorm:"index"`
	EndDate   time.Time       `gorm:"index"`
	Details   []BookingDetail `gorm:"foreignKey:BookingID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BookingDetail struct {
	ID            string `gorm:"primaryKey"`
	BookingID     string `gorm:"index"`
	RoomID        string `gorm:"index"`
	Price         int64
	Note          string
	DurationUnits int32
}

// EventConsumed dedupes deliveries. ID is the composed event key
// (event type + source entity id).
type EventConsumed struct {
	ID          string `gorm:"primaryKey"`
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}

// RoomIDs lists the rooms referenced by the booking's details.
func (b *Booking) RoomIDs() []string {
	out := make([]string, 0, len(b.Details))
	for _, d := range b.Details {
		out = append(out, d.RoomID)
	}
	return out
}

// Amount is the payable total across details.
func (b *Booking) Amount() int64 {
	var sum int64
	for _, d := range b.Details {
		units := int64(d.DurationUnits)
		if units <= 0 {
			units = 1
		}
		sum += d.Price * units
	}
	return sum
}
