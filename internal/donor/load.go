package donor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"organchain/internal/models"
	"organchain/internal/reconcile"
	dErrors "organchain/pkg/domain-errors"
	audit "organchain/pkg/platform/audit"
)

// load probes the ledger for sess and rebuilds the view. A failed probe does
// not short-circuit: both stores are read and the merge decides.
func (c *Controller) load(ctx context.Context, sess *session, action Action) Outcome {
	addr := sess.address()
	registered, err := sess.ledger.IsDonor(ctx, addr)
	if err != nil {
		c.logger.WarnContext(ctx, "ledger probe failed",
			"identity", addr.Short(),
			"error", err,
		)
	} else if !registered {
		return c.loadUnregistered(ctx, sess, action)
	}

	if !c.update(sess, func() { c.state = StateLoading }) {
		return c.discard(ctx, sess, action, "")
	}

	var (
		record     *models.LedgerRecord
		ledgerErr  error
		profile    *models.Profile
		profileErr error
	)
	// Plain group: one side failing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		record, ledgerErr = sess.ledger.GetDonorInfo(ctx, addr)
		return nil
	})
	g.Go(func() error {
		profile, profileErr = c.profiles.FetchByIdentity(ctx, addr)
		return nil
	})
	_ = g.Wait()

	return c.applyReads(ctx, sess, action, record, ledgerErr, profile, profileErr)
}

// loadUnregistered handles an identity with no ledger record. The profile
// store is still read so a stray profile is visible.
func (c *Controller) loadUnregistered(ctx context.Context, sess *session, action Action) Outcome {
	profile, err := c.profiles.FetchByIdentity(ctx, sess.address())
	var warning error
	if failed(err) {
		warning = err
	}
	view, ok := reconcile.Merge(nil, profile)

	applied := c.update(sess, func() {
		c.state = StateNoLedgerRecord
		c.err = nil
		c.warning = warning
		c.view = nil
		if ok {
			c.view = &view
		}
	})
	if !applied {
		return c.discard(ctx, sess, action, "")
	}
	return succeeded(action, warning)
}

func (c *Controller) applyReads(
	ctx context.Context,
	sess *session,
	action Action,
	record *models.LedgerRecord,
	ledgerErr error,
	profile *models.Profile,
	profileErr error,
) Outcome {
	view, ok := reconcile.Merge(record, profile)

	var (
		state   State
		loadErr error
		warning error
	)
	switch {
	case ok && record != nil:
		state = StateLoaded
		if failed(profileErr) {
			warning = profileErr
		}
	case ok && failed(ledgerErr):
		// Profile-only view; the ledger could not be read.
		state = StateLoaded
		warning = ledgerErr
	case ok:
		state = StateNoLedgerRecord
	case failed(ledgerErr):
		state = StateLoadError
		loadErr = ledgerErr
	default:
		state = StateNoLedgerRecord
		if failed(profileErr) {
			warning = profileErr
		}
	}

	applied := c.update(sess, func() {
		c.state = state
		c.err = loadErr
		c.warning = warning
		c.view = nil
		if ok {
			c.view = &view
		}
	})
	if !applied {
		return c.discard(ctx, sess, action, "")
	}

	if loadErr != nil {
		c.emit(ctx, audit.EventDonorViewLoadFailed, sess.address(), "", string(OutcomeFailure), dErrors.Reason(loadErr))
		return failure(action, loadErr)
	}
	if warning != nil {
		c.logger.WarnContext(ctx, "donor view built from one store",
			"identity", sess.address().Short(),
			"source", view.Source,
			"warning", warning,
		)
	}
	return succeeded(action, warning)
}

// failed reports a read error other than "no such record".
func failed(err error) bool {
	return err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound)
}

func succeeded(action Action, warning error) Outcome {
	if warning != nil {
		return Outcome{Action: action, Kind: OutcomeSuccessWithWarning, Warning: warning}
	}
	return Outcome{Action: action, Kind: OutcomeSuccess}
}
