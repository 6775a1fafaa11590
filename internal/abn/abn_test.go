package abn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_StripsSeparators(t *testing.T) {
	inputs := []string{
		"51824753556",
		"51 824 753 556",
		"51-824-753-556",
		" 51.824.753.556 ",
		"ABN: 51 824 753 556",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			id, err := Validate(in)
			require.NoError(t, err)
			assert.Equal(t, "51824753556", id)
		})
	}
}

func TestValidate_WrongLength(t *testing.T) {
	for _, in := range []string{"1234567890", "123456789012", "12 345", "abc"} {
		t.Run(in, func(t *testing.T) {
			_, err := Validate(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFormat))
		})
	}
}

func TestValidate_Missing(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Validate(in)
		assert.True(t, errors.Is(err, ErrMissing))
		assert.False(t, errors.Is(err, ErrInvalidFormat))
	}
}

func TestValidate_NoChecksum(t *testing.T) {
	// Format-valid but fails the modulus check.
	id, err := Validate("12 345 678 901")
	require.NoError(t, err)
	assert.Equal(t, "12345678901", id)
	assert.False(t, Checksum(id))
}

func TestCanonical_NonASCIIDigits(t *testing.T) {
	// Arabic-Indic digits are not decimal ASCII and are dropped.
	assert.Equal(t, "12", Canonical("1٣2"))
}

func TestChecksum(t *testing.T) {
	assert.True(t, Checksum("51824753556"))
	assert.True(t, Checksum("53004085616"))
	assert.False(t, Checksum("51824753557"))
	assert.False(t, Checksum("5182475355"))
	assert.False(t, Checksum("5182475355x"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "51 824 753 556", Format("51824753556"))
	assert.Equal(t, "123", Format("123"))
	assert.Equal(t, "5182475355x", Format("5182475355x"))
}
