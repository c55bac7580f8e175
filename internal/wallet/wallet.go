// Package wallet acquires and tracks the acting identity: the wallet address
// that signs ledger transactions and keys profile records.
//
// The current identity is held behind an atomic pointer and never mutated.
// An account switch installs a new *Identity, so components that captured
// the old pointer can tell their results are stale with a pointer compare.
package wallet

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"organchain/pkg/domain"
)

// Backend errors. The Provider translates these into coded errors.
var (
	ErrUnavailable       = errors.New("wallet backend unavailable")
	ErrUserRejected      = errors.New("user rejected the request")
	ErrSignatureDeclined = errors.New("user declined to sign")
	ErrUnknownAccount    = errors.New("account not held by wallet")
)

// Signer signs transaction digests on behalf of one account.
type Signer interface {
	Address() domain.Address
	Sign(digest []byte) ([]byte, error)
}

// Identity is an address plus the signer that speaks for it. Treat it as
// immutable.
type Identity struct {
	Address domain.Address
	Signer  Signer
}

// Backend is a wallet implementation: a browser extension bridge, a local
// keystore, or an in-memory test wallet.
type Backend interface {
	// RequestAccounts asks the user to authorise accounts. It may prompt.
	RequestAccounts(ctx context.Context) ([]domain.Address, error)
	// Accounts lists already-authorised accounts without prompting.
	Accounts(ctx context.Context) ([]domain.Address, error)
	Signer(addr domain.Address) (Signer, error)
	// Watch streams the authorised account list whenever it changes, active
	// account first. The channel is closed after cancel is called.
	Watch() (<-chan []domain.Address, func())
}

// Change describes an identity transition. Current is nil when the wallet
// was locked or disconnected.
type Change struct {
	Previous *Identity
	Current  *Identity
}

// AddressFromPublicKey derives an account address as the trailing 20 bytes of
// the Keccak-256 hash of the public key: the uncompressed point without its
// prefix byte for ECDSA keys, the PKIX encoding otherwise.
func AddressFromPublicKey(pub crypto.PublicKey) (domain.Address, error) {
	var raw []byte
	if ec, ok := pub.(*ecdsa.PublicKey); ok {
		ecdhKey, err := ec.ECDH()
		if err != nil {
			return "", fmt.Errorf("convert ecdsa key: %w", err)
		}
		raw = ecdhKey.Bytes()[1:]
	} else {
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return "", fmt.Errorf("marshal public key: %w", err)
		}
		raw = der
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(raw)
	return domain.AddressFromBytes(h.Sum(nil)), nil
}
