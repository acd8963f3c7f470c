package validate

import (
	"errors"
	"strings"
)

// ErrInvalidTrackingNumber is returned for tracking numbers that cannot be a
// real carrier identifier.
var ErrInvalidTrackingNumber = errors.New("invalid tracking number")

// maxTrackingNumberLength bounds what we forward to the tracking provider.
// The longest real carrier formats are around 35 characters.
const maxTrackingNumberLength = 64

// TrackingNumber validates a carrier tracking number before it is forwarded
// to the tracking provider. Returns the trimmed, uppercased number.
func TrackingNumber(number string) (string, error) {
	number = strings.ToUpper(strings.TrimSpace(number))

	if number == "" {
		return "", ErrEmpty
	}
	if len(number) > maxTrackingNumberLength {
		return "", ErrStringTooLong
	}

	// Carriers use alphanumerics plus occasional separators.
	for _, r := range number {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return "", ErrInvalidTrackingNumber
		}
	}

	return number, nil
}
