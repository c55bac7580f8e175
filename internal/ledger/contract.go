// Package ledger talks to the donor registry contract on behalf of one
// wallet identity.
//
// Transports (Fabric, in-process) implement the narrow Contract surface and
// report failures with the error types below. Client layers validation,
// confirmation timeouts, coded errors, metrics and tracing on top.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"organchain/internal/models"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

// Transaction is a submitted write awaiting inclusion.
type Transaction interface {
	ID() string
	// Wait blocks until the transaction is included in a block. An included
	// but invalid transaction returns *InvalidTxError.
	Wait(ctx context.Context) (*Inclusion, error)
}

// Inclusion describes where a transaction landed.
type Inclusion struct {
	BlockNumber uint64
}

// Contract is the registry contract as seen by one signer.
type Contract interface {
	RegisterDonor(ctx context.Context, reg models.Registration) (Transaction, error)
	RevokeDonation(ctx context.Context) (Transaction, error)
	// GetDonorInfo returns ErrNotRegistered when addr has no record.
	GetDonorInfo(ctx context.Context, addr domain.Address) (*models.LedgerRecord, error)
	IsDonor(ctx context.Context, addr domain.Address) (bool, error)
}

// Transport binds the contract to a signing identity.
type Transport interface {
	Bind(id *wallet.Identity) (Contract, error)
}

// ErrNotRegistered is returned by reads for an address without a record.
var ErrNotRegistered = errors.New("donor not registered")

// RevertError reports that the contract rejected a write. Reason is the
// contract's message, surfaced to the user unchanged.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// InvalidTxError reports a transaction that was included but marked invalid.
type InvalidTxError struct {
	TxID string
	Code string
}

func (e *InvalidTxError) Error() string {
	return fmt.Sprintf("transaction %s invalid: %s", e.TxID, e.Code)
}
