package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const referencePrefix = "BOOKING_"

// shortToken keeps the first 8 hex characters of a uuid-shaped id. Eight hex
// chars give ~4 billion values, enough that collisions among concurrently
// PENDING payments stay rare; the repository still enforces uniqueness and
// the caller regenerates from a fresh uuid on a clash.
func shortToken(id string) string {
	hex := strings.ToLower(strings.ReplaceAll(id, "-", ""))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return hex
}

// ReferenceFromBookingID derives the memo token the user transcribes into
// the bank transfer, e.g. BOOKING_ab12cd34.
func ReferenceFromBookingID(bookingID string) string {
	return referencePrefix + shortToken(bookingID)
}

// freshReference widens the token space after a collision.
func freshReference() string {
	return referencePrefix + shortToken(uuid.NewString())
}

// qrPayload is the free-text the QR encodes: memo token plus amount, enough
// for a banking app to prefill the transfer.
func qrPayload(reference string, amount int64) string {
	return fmt.Sprintf("%s|%d", reference, amount)
}

// qrImageDataURL renders the payload as an inline PNG.
func qrImageDataURL(reference string, amount int64) (string, error) {
	png, err := qrcode.Encode(qrPayload(reference, amount), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
