package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"organchain/internal/ledger/pending"
	"organchain/internal/models"
	"organchain/internal/platform/metrics"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/requestcontext"
)

const (
	opRegister = "register_donor"
	opRevoke   = "revoke_donation"
	opConfirm  = "confirm"
	opGet      = "get_donor_info"
	opIsDonor  = "is_donor"
)

// DefaultConfirmTimeout bounds Confirm when no timeout is configured.
const DefaultConfirmTimeout = 2 * time.Minute

// PendingTx is a submitted write that has not been confirmed yet. It is not
// evidence of registration.
type PendingTx struct {
	ID          string
	Op          string
	Identity    domain.Address
	SubmittedAt time.Time

	tx Transaction
}

// Receipt is a confirmed write.
type Receipt struct {
	TxID        string
	BlockNumber uint64
	ConfirmedAt time.Time
}

// Client is the ledger registry client for one identity. Build a new one
// through Binder.Bind after every identity change.
type Client struct {
	contract       Contract
	identity       *wallet.Identity
	confirmTimeout time.Duration
	journal        pending.Journal
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

// Identity returns the identity the client signs for.
func (c *Client) Identity() *wallet.Identity {
	return c.identity
}

// RegisterDonor validates reg and submits a registerDonor transaction.
func (c *Client) RegisterDonor(ctx context.Context, reg models.Registration) (*PendingTx, error) {
	if err := ValidateRegistration(reg); err != nil {
		return nil, err
	}
	return c.submit(ctx, opRegister, func(ctx context.Context) (Transaction, error) {
		return c.contract.RegisterDonor(ctx, reg)
	})
}

// RevokeDonation submits a revokeDonation transaction for the bound identity.
func (c *Client) RevokeDonation(ctx context.Context) (*PendingTx, error) {
	return c.submit(ctx, opRevoke, c.contract.RevokeDonation)
}

func (c *Client) submit(ctx context.Context, op string, send func(context.Context) (Transaction, error)) (*PendingTx, error) {
	ctx, span := c.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("identity", c.identity.Address.String()),
	))
	defer span.End()

	start := time.Now()
	tx, err := send(ctx)
	if err != nil {
		mapped := mapWriteError(err)
		c.observe(op, mapped, start)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(mapped)))
		c.logger.WarnContext(ctx, "ledger write failed",
			"op", op,
			"identity", c.identity.Address.Short(),
			"code", dErrors.CodeOf(mapped),
			"error", err,
		)
		return nil, mapped
	}
	c.observe(op, nil, start)
	span.SetAttributes(attribute.String("tx_id", tx.ID()))

	p := &PendingTx{
		ID:          tx.ID(),
		Op:          op,
		Identity:    c.identity.Address,
		SubmittedAt: requestcontext.Now(ctx),
		tx:          tx,
	}
	if c.journal != nil {
		entry := pending.Entry{TxID: p.ID, Op: op, Identity: p.Identity, SubmittedAt: p.SubmittedAt}
		if err := c.journal.Record(ctx, entry); err != nil {
			c.logger.WarnContext(ctx, "pending journal record failed", "tx_id", p.ID, "error", err)
		}
	}
	c.logger.InfoContext(ctx, "ledger transaction submitted",
		"op", op,
		"identity", c.identity.Address.Short(),
		"tx_id", p.ID,
	)
	return p, nil
}

// Confirm waits for p's inclusion, bounded by the configured timeout.
func (c *Client) Confirm(ctx context.Context, p *PendingTx) (*Receipt, error) {
	if p == nil || p.tx == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no pending transaction to confirm")
	}
	ctx, span := c.tracer.Start(ctx, "ledger.confirm", trace.WithAttributes(
		attribute.String("tx_id", p.ID),
		attribute.String("op", p.Op),
	))
	defer span.End()

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	start := time.Now()
	inc, err := p.tx.Wait(waitCtx)
	if err != nil {
		mapped := mapConfirmError(err, waitCtx)
		c.observe(opConfirm, mapped, start)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(mapped)))
		// A timed-out transaction may still land; leave it journaled.
		if c.journal != nil && !dErrors.HasCode(mapped, dErrors.CodeConfirmationTimeout) {
			c.clearJournal(ctx, p)
		}
		c.logger.WarnContext(ctx, "ledger confirmation failed",
			"op", p.Op,
			"tx_id", p.ID,
			"code", dErrors.CodeOf(mapped),
			"error", err,
		)
		return nil, mapped
	}
	c.observe(opConfirm, nil, start)
	c.metrics.ObserveConfirm(time.Since(p.SubmittedAt))
	if c.journal != nil {
		c.clearJournal(ctx, p)
	}

	span.SetAttributes(attribute.Int64("block_number", int64(inc.BlockNumber)))
	c.logger.InfoContext(ctx, "ledger transaction confirmed",
		"op", p.Op,
		"tx_id", p.ID,
		"block", inc.BlockNumber,
	)
	return &Receipt{TxID: p.ID, BlockNumber: inc.BlockNumber, ConfirmedAt: time.Now()}, nil
}

func (c *Client) clearJournal(ctx context.Context, p *PendingTx) {
	if err := c.journal.Clear(ctx, p.Identity, p.ID); err != nil {
		c.logger.WarnContext(ctx, "pending journal clear failed", "tx_id", p.ID, "error", err)
	}
}

// GetDonorInfo reads the record for addr.
func (c *Client) GetDonorInfo(ctx context.Context, addr domain.Address) (*models.LedgerRecord, error) {
	ctx, span := c.tracer.Start(ctx, "ledger."+opGet, trace.WithAttributes(attribute.String("identity", addr.String())))
	defer span.End()

	start := time.Now()
	rec, err := c.contract.GetDonorInfo(ctx, addr)
	if err != nil {
		mapped := mapReadError(err)
		c.observe(opGet, mapped, start)
		if !dErrors.HasCode(mapped, dErrors.CodeNotFound) {
			span.RecordError(mapped)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(mapped)))
		}
		return nil, mapped
	}
	c.observe(opGet, nil, start)
	return rec, nil
}

// IsDonor reports whether addr has an active or revoked record.
func (c *Client) IsDonor(ctx context.Context, addr domain.Address) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "ledger."+opIsDonor, trace.WithAttributes(attribute.String("identity", addr.String())))
	defer span.End()

	start := time.Now()
	ok, err := c.contract.IsDonor(ctx, addr)
	if err != nil {
		mapped := mapReadError(err)
		c.observe(opIsDonor, mapped, start)
		span.RecordError(mapped)
		return false, mapped
	}
	c.observe(opIsDonor, nil, start)
	return ok, nil
}

func (c *Client) observe(op string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	c.metrics.ObserveLedgerOp(op, outcome, time.Since(start))
}

func mapWriteError(err error) error {
	var rev *RevertError
	switch {
	case errors.Is(err, wallet.ErrSignatureDeclined):
		return dErrors.Wrap(err, dErrors.CodeWriteRejected, "signature request declined")
	case errors.As(err, &rev):
		return dErrors.Wrap(err, dErrors.CodeWriteReverted, rev.Reason)
	default:
		return dErrors.Wrap(err, dErrors.CodeNetwork, "ledger unreachable")
	}
}

func mapConfirmError(err error, waitCtx context.Context) error {
	var inv *InvalidTxError
	var rev *RevertError
	switch {
	case errors.As(err, &inv):
		return dErrors.Wrap(err, dErrors.CodeTransactionFailed, "transaction included but invalid: "+inv.Code)
	case errors.As(err, &rev):
		return dErrors.Wrap(err, dErrors.CodeWriteReverted, rev.Reason)
	case waitCtx.Err() != nil:
		return dErrors.Wrap(err, dErrors.CodeConfirmationTimeout, "transaction not confirmed in time")
	default:
		return dErrors.Wrap(err, dErrors.CodeNetwork, "confirmation status unavailable")
	}
}

func mapReadError(err error) error {
	if errors.Is(err, ErrNotRegistered) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "donor not registered on ledger")
	}
	return dErrors.Wrap(err, dErrors.CodeNetwork, "ledger unreachable")
}

func defaultTracer() trace.Tracer {
	return otel.Tracer("organchain/internal/ledger")
}
