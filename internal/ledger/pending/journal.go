// Package pending journals ledger transactions that were submitted but not
// yet confirmed, so a restarted client can report in-flight writes. A
// journal entry is never evidence of registration.
package pending

import (
	"context"
	"time"

	"organchain/pkg/domain"
)

// Entry is one unconfirmed transaction.
type Entry struct {
	TxID        string         `json:"tx_id"`
	Op          string         `json:"op"`
	Identity    domain.Address `json:"identity"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Journal records and clears unconfirmed transactions.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Clear(ctx context.Context, identity domain.Address, txID string) error
	List(ctx context.Context, identity domain.Address) ([]Entry, error)
}
