// Package memory is a programmable in-process wallet for tests and local
// development. Accounts hold real ECDSA P-256 keys; whether the user
// approves connection and signing requests is set by the caller.
package memory

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"

	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

type Wallet struct {
	wallet.Feed

	mu             sync.Mutex
	keys           map[domain.Address]*ecdsa.PrivateKey
	order          []domain.Address
	active         domain.Address
	authorised     bool
	rejectConnect  bool
	declineSigning bool
}

func New() *Wallet {
	return &Wallet{keys: make(map[domain.Address]*ecdsa.PrivateKey)}
}

// NewAccount generates a key and derives its address. The first account
// added becomes active.
func (w *Wallet) NewAccount() (domain.Address, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	addr, err := wallet.AddressFromPublicKey(&key.PublicKey)
	if err != nil {
		return "", err
	}
	w.add(addr, key)
	return addr, nil
}

// AddAccount registers a fixed address backed by a fresh key. Use it when a
// test needs a well-known address.
func (w *Wallet) AddAccount(addr domain.Address) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	w.add(addr, key)
	return nil
}

func (w *Wallet) add(addr domain.Address, key *ecdsa.PrivateKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.keys[addr]; !ok {
		w.order = append(w.order, addr)
	}
	w.keys[addr] = key
	if w.active == "" {
		w.active = addr
	}
}

// RejectConnect makes subsequent RequestAccounts calls fail as if the user
// dismissed the prompt.
func (w *Wallet) RejectConnect(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectConnect = reject
}

// DeclineSigning makes every signer refuse to sign.
func (w *Wallet) DeclineSigning(decline bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.declineSigning = decline
}

// Switch makes addr the active account, notifying watchers when the wallet
// is authorised.
func (w *Wallet) Switch(addr domain.Address) error {
	w.mu.Lock()
	if _, ok := w.keys[addr]; !ok {
		w.mu.Unlock()
		return wallet.ErrUnknownAccount
	}
	w.active = addr
	authorised := w.authorised
	accounts := w.accountsLocked()
	w.mu.Unlock()

	if authorised {
		w.Publish(accounts)
	}
	return nil
}

// Lock revokes authorisation; watchers observe an empty account list.
func (w *Wallet) Lock() {
	w.mu.Lock()
	w.authorised = false
	w.mu.Unlock()
	w.Publish(nil)
}

func (w *Wallet) RequestAccounts(ctx context.Context) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rejectConnect {
		return nil, wallet.ErrUserRejected
	}
	if len(w.order) == 0 {
		return nil, wallet.ErrUnavailable
	}
	w.authorised = true
	return w.accountsLocked(), nil
}

func (w *Wallet) Accounts(ctx context.Context) ([]domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.authorised {
		return nil, nil
	}
	return w.accountsLocked(), nil
}

func (w *Wallet) Signer(addr domain.Address) (wallet.Signer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key, ok := w.keys[addr]
	if !ok {
		return nil, wallet.ErrUnknownAccount
	}
	return &signer{addr: addr, key: key, wallet: w}, nil
}

// accountsLocked lists accounts with the active one first.
func (w *Wallet) accountsLocked() []domain.Address {
	out := make([]domain.Address, 0, len(w.order))
	out = append(out, w.active)
	for _, a := range w.order {
		if a != w.active {
			out = append(out, a)
		}
	}
	return out
}

func (w *Wallet) declining() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.declineSigning
}

type signer struct {
	addr   domain.Address
	key    *ecdsa.PrivateKey
	wallet *Wallet
}

func (s *signer) Address() domain.Address {
	return s.addr
}

func (s *signer) Sign(digest []byte) ([]byte, error) {
	if s.wallet.declining() {
		return nil, wallet.ErrSignatureDeclined
	}
	return ecdsa.SignASN1(rand.Reader, s.key, digest)
}

// Verify checks a signature produced by the account's key.
func (s *signer) Verify(digest, sig []byte) bool {
	return ecdsa.VerifyASN1(&s.key.PublicKey, digest, sig)
}
