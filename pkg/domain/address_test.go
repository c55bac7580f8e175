package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "organchain/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the canonical form invariant:
// "addresses are 0x-prefixed, 40 hex digits, lower-case".
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("lower-cases mixed case input", func(t *testing.T) {
		addr, err := ParseAddress("0xABcdef0000000000000000000000000000000012")
		require.NoError(t, err)
		assert.Equal(t, Address("0xabcdef0000000000000000000000000000000012"), addr)
	})

	t.Run("accepts upper-case prefix", func(t *testing.T) {
		addr, err := ParseAddress("0XAB00000000000000000000000000000000000012")
		require.NoError(t, err)
		assert.Equal(t, "0xab00000000000000000000000000000000000012", addr.String())
	})

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"missing prefix", "ab00000000000000000000000000000000000012"},
		{"too short", "0xab12"},
		{"too long", "0x" + strings.Repeat("a", 41)},
		{"non hex", "0x" + strings.Repeat("z", 40)},
		{"null byte", "0x" + strings.Repeat("a", 39) + "\x00"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestAddressFromBytes(t *testing.T) {
	t.Run("keeps trailing twenty bytes", func(t *testing.T) {
		b := make([]byte, 32)
		b[31] = 0x12
		b[12] = 0xab
		assert.Equal(t, Address("0xab00000000000000000000000000000000000012"), AddressFromBytes(b))
	})

	t.Run("left pads short input", func(t *testing.T) {
		addr := AddressFromBytes([]byte{0x01})
		_, err := ParseAddress(addr.String())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(addr.String(), "01"))
	})
}

func TestAddressShort(t *testing.T) {
	addr := MustParseAddress("0xab00000000000000000000000000000000000012")
	assert.Equal(t, "0xab00…0012", addr.Short())
	assert.True(t, Address("").IsZero())
}
