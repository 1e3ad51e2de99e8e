package domain

import (
	"errors"
	"strings"
	"unicode"
)

const MaskChar = '*'

var ErrCardNumber = errors.New("card number must contain only digits, spaces or dashes")

// MaskCardNumber replaces every digit but the last four with MaskChar.
// Separators stay where they are, so the result is as long as the input.
func MaskCardNumber(raw string) (string, error) {
	n := 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			n++
		case r == '-' || unicode.IsSpace(r):
		default:
			return "", ErrCardNumber
		}
	}

	var b strings.Builder
	b.Grow(len(raw))
	seen := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= n-4 {
				r = MaskChar
			}
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}
