package domain

import (
	"encoding/hex"
	"strings"

	dErrors "organchain/pkg/domain-errors"
)

const addressHexLen = 40

// Address is the acting identity: a wallet address in canonical form,
// "0x" followed by 40 lower-case hex digits. It is the only join key between
// the ledger and the profile store.
//
// Usage: construct via ParseAddress at trust boundaries; direct casting
// bypasses normalisation and two spellings of one wallet would stop matching.
type Address string

// ParseAddress validates and lower-cases an address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	body, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "address must start with 0x")
	}
	if len(body) != addressHexLen {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 20 bytes")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "address must be hex encoded")
	}
	return Address("0x" + body), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes formats the trailing 20 bytes of b as an address.
func AddressFromBytes(b []byte) Address {
	if len(b) > addressHexLen/2 {
		b = b[len(b)-addressHexLen/2:]
	}
	return Address("0x" + strings.Repeat("00", addressHexLen/2-len(b)) + hex.EncodeToString(b))
}

func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// Short renders the address as 0xabcd…1234 for logs.
func (a Address) Short() string {
	if len(a) < 10 {
		return string(a)
	}
	return string(a[:6]) + "…" + string(a[len(a)-4:])
}
