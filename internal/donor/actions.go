package donor

import (
	"context"

	"organchain/internal/ledger"
	"organchain/internal/models"
	dErrors "organchain/pkg/domain-errors"
	audit "organchain/pkg/platform/audit"
)

// Register writes the donor record to the ledger, waits for confirmation,
// then creates the matching profile and reloads. A ledger failure aborts
// before any profile write and restores the prior state.
func (c *Controller) Register(ctx context.Context, in RegisterInput) Outcome {
	ctx, span := c.start(ctx, ActionRegister)
	defer span.End()

	reg, profile, err := in.build()
	if err != nil {
		return c.finish(ctx, span, failure(ActionRegister, err))
	}
	sess, prior, err := c.enter(StateRegistering, true)
	if err != nil {
		return c.finish(ctx, span, failure(ActionRegister, err))
	}
	addr := sess.address()

	txID, err := c.write(ctx, sess, func(ctx context.Context) (*ledger.PendingTx, error) {
		return sess.ledger.RegisterDonor(ctx, reg)
	})
	if err != nil {
		return c.finish(ctx, span, c.abort(ctx, sess, prior, ActionRegister, txID, err))
	}
	c.emit(ctx, audit.EventDonorRegistered, addr, txID, string(OutcomeSuccess), "")

	// The profile belongs to the identity that signed, even if the wallet
	// has moved on since.
	profile.WalletAddress = addr
	var warning error
	if _, err := c.profiles.Create(ctx, profile); err != nil {
		warning = err
		c.profileSyncFailed(ctx, sess, ActionRegister, txID, err)
	}
	return c.finish(ctx, span, c.reload(ctx, sess, ActionRegister, txID, warning))
}

// Revoke deactivates the donor on the ledger, then marks the profile
// inactive and reloads.
func (c *Controller) Revoke(ctx context.Context) Outcome {
	ctx, span := c.start(ctx, ActionRevoke)
	defer span.End()

	sess, prior, err := c.enter(StateRevoking, true)
	if err != nil {
		return c.finish(ctx, span, failure(ActionRevoke, err))
	}
	addr := sess.address()

	txID, err := c.write(ctx, sess, sess.ledger.RevokeDonation)
	if err != nil {
		return c.finish(ctx, span, c.abort(ctx, sess, prior, ActionRevoke, txID, err))
	}
	c.emit(ctx, audit.EventDonationRevoked, addr, txID, string(OutcomeSuccess), "")

	var warning error
	if _, err := c.profiles.UpdateStatus(ctx, addr, models.StatusUpdate(models.StatusInactive)); err != nil {
		warning = err
		c.profileSyncFailed(ctx, sess, ActionRevoke, txID, err)
	}
	return c.finish(ctx, span, c.reload(ctx, sess, ActionRevoke, txID, warning))
}

// write submits and confirms one ledger transaction. The returned id is set
// whenever submission succeeded.
func (c *Controller) write(ctx context.Context, sess *session, submit func(context.Context) (*ledger.PendingTx, error)) (string, error) {
	pending, err := submit(ctx)
	if err != nil {
		return "", err
	}
	receipt, err := sess.ledger.Confirm(ctx, pending)
	if err != nil {
		return pending.ID, err
	}
	return receipt.TxID, nil
}

func (c *Controller) abort(ctx context.Context, sess *session, prior State, action Action, txID string, err error) Outcome {
	event := audit.EventLedgerWriteFailed
	if dErrors.HasCode(err, dErrors.CodeWriteRejected) {
		event = audit.EventSignatureDeclined
	}
	c.emit(ctx, event, sess.address(), txID, string(OutcomeFailure), dErrors.Reason(err))

	if !c.update(sess, func() { c.state = prior }) {
		return c.discard(ctx, sess, action, txID)
	}
	out := failure(action, err)
	out.TxID = txID
	return out
}

func (c *Controller) profileSyncFailed(ctx context.Context, sess *session, action Action, txID string, err error) {
	c.logger.WarnContext(ctx, "profile sync failed after ledger confirmation",
		"action", action,
		"identity", sess.address().Short(),
		"tx_id", txID,
		"code", dErrors.CodeOf(err),
		"error", err,
	)
	c.emit(ctx, audit.EventProfileSyncFailed, sess.address(), txID, string(OutcomeSuccessWithWarning), dErrors.Reason(err))
}

// reload rebuilds the view after a confirmed write. The write already
// succeeded, so load failures only downgrade the outcome to a warning.
func (c *Controller) reload(ctx context.Context, sess *session, action Action, txID string, warning error) Outcome {
	if !c.update(sess, func() { c.state = StateLoading }) {
		return c.discard(ctx, sess, action, txID)
	}
	out := c.load(ctx, sess, action)
	out.TxID = txID
	switch {
	case out.Kind == OutcomeDiscarded:
		return out
	case warning == nil && out.Kind == OutcomeFailure:
		warning = out.Err
	case warning == nil:
		warning = out.Warning
	}
	result := succeeded(action, warning)
	result.TxID = txID
	return result
}
