package domain

import "time"

const (
	StatusPending  = "PENDING"
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
	StatusRefunded = "REFUNDED"
)

// Payment is 1:1 with the currently active booking attempt. Reference is the
// short token embedded in the bank-transfer memo; it must be unique among
// PENDING payments.
type Payment struct {
	ID            string `gorm:"primaryKey"`
	BookingID     string `gorm:"uniqueIndex"`
	UserID        string `gorm:"index"`
	Amount        int64
	Method        string
	Status        string `gorm:"index"` // PENDING|SUCCESS|FAILED|REFUNDED
	Reference     string `gorm:"index"`
	TransactionID string
	QRImageURL    string
	PaymentURL    string
	PaymentDate   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NextStatuses encodes the monotonic lifecycle: PENDING can resolve either
// way, REFUNDED is reachable only from SUCCESS, everything else is terminal.
func NextStatuses(current string) []string {
	switch current {
	case StatusPending:
		return []string{StatusSuccess, StatusFailed}
	case StatusSuccess:
		return []string{StatusRefunded}
	default:
		return nil
	}
}

func CanTransition(from, to string) bool {
	for _, s := range NextStatuses(from) {
		if s == to {
			return true
		}
	}
	return false
}
