// Package keystore is a wallet backed by X.509 enrolment material on disk,
// laid out the way Fabric CAs issue it:
//
//	<dir>/<account>/msp/signcerts/*.pem
//	<dir>/<account>/msp/keystore/*
//
// The msp/ level is optional. Each certificate's public key yields the
// account address; the key signs through fabric-gateway's identity package,
// so the same signer drives the Fabric ledger transport.
package keystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperledger/fabric-gateway/pkg/identity"

	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

type account struct {
	name string
	addr domain.Address
	id   *identity.X509Identity
	sign identity.Sign
}

// Keystore implements wallet.Backend over a directory of enrolments.
type Keystore struct {
	wallet.Feed

	approver Approver

	mu         sync.Mutex
	accounts   map[domain.Address]*account
	order      []domain.Address
	active     domain.Address
	authorised bool
}

// Open loads every enrolment under dir. At least one account must load.
func Open(dir, mspID string, approver Approver) (*Keystore, error) {
	if approver == nil {
		approver = AutoApprove{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", dir, err)
	}

	ks := &Keystore{approver: approver, accounts: make(map[domain.Address]*account)}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		acct, err := loadAccount(filepath.Join(dir, name), name, mspID)
		if err != nil {
			return nil, fmt.Errorf("load account %s: %w", name, err)
		}
		if _, dup := ks.accounts[acct.addr]; dup {
			continue
		}
		ks.accounts[acct.addr] = acct
		ks.order = append(ks.order, acct.addr)
	}
	if len(ks.order) == 0 {
		return nil, fmt.Errorf("keystore %s: %w", dir, wallet.ErrUnavailable)
	}
	ks.active = ks.order[0]
	return ks, nil
}

func loadAccount(root, name, mspID string) (*account, error) {
	if fi, err := os.Stat(filepath.Join(root, "msp")); err == nil && fi.IsDir() {
		root = filepath.Join(root, "msp")
	}

	certPEM, err := readFirst(filepath.Join(root, "signcerts"))
	if err != nil {
		return nil, err
	}
	cert, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	id, err := identity.NewX509Identity(mspID, cert)
	if err != nil {
		return nil, fmt.Errorf("build identity: %w", err)
	}

	keyPEM, err := readFirst(filepath.Join(root, "keystore"))
	if err != nil {
		return nil, err
	}
	key, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	addr, err := wallet.AddressFromPublicKey(cert.PublicKey)
	if err != nil {
		return nil, err
	}
	return &account{name: name, addr: addr, id: id, sign: sign}, nil
}

func readFirst(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return os.ReadFile(filepath.Join(dir, e.Name()))
		}
	}
	return nil, fmt.Errorf("no files in %s", dir)
}

// Names maps each address to its enrolment directory name.
func (k *Keystore) Names() map[domain.Address]string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[domain.Address]string, len(k.accounts))
	for addr, acct := range k.accounts {
		out[addr] = acct.name
	}
	return out
}

// Select makes addr the active account. Watchers are notified when the
// keystore is already authorised.
func (k *Keystore) Select(addr domain.Address) error {
	k.mu.Lock()
	if _, ok := k.accounts[addr]; !ok {
		k.mu.Unlock()
		return wallet.ErrUnknownAccount
	}
	k.active = addr
	authorised := k.authorised
	accounts := k.accountsLocked()
	k.mu.Unlock()

	if authorised {
		k.Publish(accounts)
	}
	return nil
}

// Lock withdraws authorisation.
func (k *Keystore) Lock() {
	k.mu.Lock()
	k.authorised = false
	k.mu.Unlock()
	k.Publish(nil)
}

func (k *Keystore) RequestAccounts(ctx context.Context) ([]domain.Address, error) {
	k.mu.Lock()
	accounts := k.accountsLocked()
	k.mu.Unlock()

	ok, err := k.approver.ApproveConnect(ctx, accounts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wallet.ErrUserRejected
	}

	k.mu.Lock()
	k.authorised = true
	k.mu.Unlock()
	return accounts, nil
}

func (k *Keystore) Accounts(context.Context) ([]domain.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.authorised {
		return nil, nil
	}
	return k.accountsLocked(), nil
}

func (k *Keystore) Signer(addr domain.Address) (wallet.Signer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	acct, ok := k.accounts[addr]
	if !ok {
		return nil, wallet.ErrUnknownAccount
	}
	return &Signer{acct: acct, approver: k.approver}, nil
}

func (k *Keystore) accountsLocked() []domain.Address {
	out := []domain.Address{k.active}
	for _, a := range k.order {
		if a != k.active {
			out = append(out, a)
		}
	}
	return out
}

// Signer signs with an enrolment key after the approver consents.
type Signer struct {
	acct     *account
	approver Approver
}

func (s *Signer) Address() domain.Address {
	return s.acct.addr
}

func (s *Signer) Sign(digest []byte) ([]byte, error) {
	if !s.approver.ApproveSign(s.acct.addr, digest) {
		return nil, wallet.ErrSignatureDeclined
	}
	return s.acct.sign(digest)
}

// GatewayIdentity is the X.509 identity presented to Fabric peers.
func (s *Signer) GatewayIdentity() identity.Identity {
	return s.acct.id
}
