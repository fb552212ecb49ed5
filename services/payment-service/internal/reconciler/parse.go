package reconciler

import (
	"regexp"
	"strconv"
	"strings"
)

// Confirmation mails carry the reference in one of two shapes: the short
// memo token (BOOKING_ab12cd34) or the full uuid of the booking when the
// bank forwards the original order id.
var (
	shortRefRe = regexp.MustCompile(`(?i)BOOKING_([0-9a-f]{8})`)
	longRefRe  = regexp.MustCompile(`(?i)\b([0-9a-f]{8})-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

	// Amounts near a keyword win; otherwise fall back to the first
	// separator- or decimal-formatted number, then to any bare integer.
	keywordAmountRe   = regexp.MustCompile(`(?i)(?:amount|total|received|transfer(?:red)?)[^0-9]{0,16}([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`)
	formattedAmountRe = regexp.MustCompile(`[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+\.[0-9]{1,2}`)
	bareAmountRe      = regexp.MustCompile(`[0-9]+`)
)

// ExtractReference finds the payment reference in a message body and
// normalizes it to the stored BOOKING_xxxxxxxx form.
func ExtractReference(body string) (string, bool) {
	if m := shortRefRe.FindStringSubmatch(body); m != nil {
		return "BOOKING_" + strings.ToLower(m[1]), true
	}
	if m := longRefRe.FindStringSubmatch(body); m != nil {
		return "BOOKING_" + strings.ToLower(m[1]), true
	}
	return "", false
}

// ExtractAmount finds a currency amount, tolerating thousands separators.
// Reference tokens are excised first so their hex digits are never mistaken
// for an amount; a mail carrying only a reference yields no amount and the
// message is skipped.
func ExtractAmount(body string) (int64, bool) {
	body = shortRefRe.ReplaceAllString(body, " ")
	body = longRefRe.ReplaceAllString(body, " ")
	if m := keywordAmountRe.FindStringSubmatch(body); m != nil {
		return parseAmount(m[1])
	}
	if m := formattedAmountRe.FindString(body); m != "" {
		return parseAmount(m)
	}
	if m := bareAmountRe.FindString(body); m != "" {
		return parseAmount(m)
	}
	return 0, false
}

func parseAmount(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int64(f + 0.5), true
}
