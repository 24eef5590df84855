// Package phone converts between the canonical 9 digit form of a phone number, which is the
// only form ever sent to the backend, and the display form "+221 DD DDD DD DD".
package phone

import (
	"errors"
	"fmt"
	"strings"
)

// CountryCode is the dialing prefix shown in front of every number.
const CountryCode = "221"

// Length is the number of digits of a canonical number.
const Length = 9

// ErrInvalidCanonicalPhone is returned by ToDisplay for input that is not 9 digits.
var ErrInvalidCanonicalPhone = errors.New("invalid canonical phone number")

// ToCanonical strips a leading "+221" prefix and every non-digit character, keeping at most
// the first 9 digits. The result is empty when the input holds no digits.
func ToCanonical(input string) string {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "+"+CountryCode) {
		s = s[len(CountryCode)+1:]
	}
	digits := digitsOnly(s)
	if len(digits) == len(CountryCode)+Length && strings.HasPrefix(digits, CountryCode) {
		digits = digits[len(CountryCode):]
	}
	return capDigits(digits)
}

// FilterInput is applied to every keystroke of the phone input: only digits are kept and
// nothing past the 9th digit is accepted.
func FilterInput(raw string) string {
	return capDigits(digitsOnly(raw))
}

// ToDisplay renders a canonical number as "+221 77 123 45 67". Empty input yields the empty
// string.
func ToDisplay(canonical string) (string, error) {
	if canonical == "" {
		return "", nil
	}
	local, err := FormatLocal(canonical)
	if err != nil {
		return "", err
	}
	return "+" + CountryCode + " " + local, nil
}

// FormatLocal groups a canonical number as "77 123 45 67", without country code.
func FormatLocal(canonical string) (string, error) {
	if len(canonical) != Length || digitsOnly(canonical) != canonical {
		return "", fmt.Errorf("%w: %q", ErrInvalidCanonicalPhone, canonical)
	}
	return canonical[0:2] + " " + canonical[2:5] + " " + canonical[5:7] + " " + canonical[7:9], nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func capDigits(digits string) string {
	if len(digits) > Length {
		return digits[:Length]
	}
	return digits
}
