package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"valid simple", "buyer@example.com", "buyer@example.com", nil},
		{"valid with plus", "buyer+tag@example.com", "buyer+tag@example.com", nil},
		{"valid with dots", "first.last@mail.example.com", "first.last@mail.example.com", nil},
		{"normalizes case", "Buyer@Example.COM", "buyer@example.com", nil},
		{"trims whitespace", "  buyer@example.com  ", "buyer@example.com", nil},
		{"empty", "", "", ErrEmpty},
		{"whitespace only", "   ", "", ErrEmpty},
		{"missing at", "buyerexample.com", "", ErrInvalidEmail},
		{"missing domain", "buyer@", "", ErrInvalidEmail},
		{"missing local part", "@example.com", "", ErrInvalidEmail},
		{"no dot in domain", "buyer@localhost", "", ErrInvalidEmail},
		{"spaces inside", "buy er@example.com", "", ErrInvalidEmail},
		{"too long overall", strings.Repeat("a", 250) + "@example.com", "", ErrStringTooLong},
		{"local part too long", strings.Repeat("a", 65) + "@example.com", "", ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Email(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Email(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
