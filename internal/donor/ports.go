package donor

import (
	"context"

	"organchain/internal/ledger"
	"organchain/internal/models"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
	audit "organchain/pkg/platform/audit"
)

// IdentityProvider is the wallet surface the controller needs.
type IdentityProvider interface {
	Connect(ctx context.Context) (*wallet.Identity, error)
	Restore(ctx context.Context) (*wallet.Identity, error)
	Current() *wallet.Identity
	Subscribe() (<-chan wallet.Change, func())
}

// LedgerClient is a registry client bound to one identity.
type LedgerClient interface {
	Identity() *wallet.Identity
	RegisterDonor(ctx context.Context, reg models.Registration) (*ledger.PendingTx, error)
	RevokeDonation(ctx context.Context) (*ledger.PendingTx, error)
	Confirm(ctx context.Context, p *ledger.PendingTx) (*ledger.Receipt, error)
	GetDonorInfo(ctx context.Context, addr domain.Address) (*models.LedgerRecord, error)
	IsDonor(ctx context.Context, addr domain.Address) (bool, error)
}

// LedgerBinder builds a LedgerClient for an identity.
type LedgerBinder interface {
	Bind(id *wallet.Identity) (LedgerClient, error)
}

type ProfileClient interface {
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	FetchByIdentity(ctx context.Context, addr domain.Address) (*models.Profile, error)
	UpdateStatus(ctx context.Context, addr domain.Address, upd models.ProfileUpdate) (*models.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ledgerBinder struct {
	binder *ledger.Binder
}

// BindWith adapts a ledger.Binder to LedgerBinder.
func BindWith(b *ledger.Binder) LedgerBinder {
	return ledgerBinder{binder: b}
}

func (b ledgerBinder) Bind(id *wallet.Identity) (LedgerClient, error) {
	client, err := b.binder.Bind(id)
	if err != nil {
		return nil, err
	}
	return client, nil
}
