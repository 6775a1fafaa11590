// Package abn validates and formats Australian Business Numbers.
package abn

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Length is the number of digits in a canonical ABN.
const Length = 11

var (
	// ErrMissing is returned when no identifier was supplied.
	ErrMissing = eris.New("abn: no identifier supplied")
	// ErrInvalidFormat is returned when the identifier does not reduce to
	// exactly eleven digits.
	ErrInvalidFormat = eris.New("abn: identifier must contain exactly 11 digits")
)

var weights = [Length]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// Validate strips every non-digit from raw and returns the canonical
// 11-digit identifier. It checks format only; see Checksum for the
// registry's check-digit rule.
func Validate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissing
	}
	id := Canonical(raw)
	if len(id) != Length {
		return "", eris.Wrapf(ErrInvalidFormat, "abn: got %d digits", len(id))
	}
	return id, nil
}

// Canonical drops every character that is not an ASCII decimal digit.
func Canonical(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Checksum reports whether a canonical identifier satisfies the ABR
// modulus-89 check.
func Checksum(id string) bool {
	if len(id) != Length {
		return false
	}
	sum := 0
	for i := 0; i < Length; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i == 0 {
			d--
		}
		sum += d * weights[i]
	}
	return sum%89 == 0
}

// Format renders a canonical identifier in the registry's display form,
// "51 824 753 556". Anything that is not canonical is returned unchanged.
func Format(id string) string {
	if len(id) != Length || Canonical(id) != id {
		return id
	}
	return id[0:2] + " " + id[2:5] + " " + id[5:8] + " " + id[8:11]
}
