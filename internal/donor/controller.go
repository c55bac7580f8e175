package donor

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"organchain/internal/models"
	"organchain/internal/platform/metrics"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	audit "organchain/pkg/platform/audit"
	"organchain/pkg/requestcontext"
)

// session pairs an identity with the ledger client bound to it. A session is
// replaced, never mutated, when the identity changes.
type session struct {
	identity *wallet.Identity
	ledger   LedgerClient
}

func (s *session) address() domain.Address {
	return s.identity.Address
}

// Controller is the donor state machine for the current wallet identity.
// Its mutex guards state only and is never held across ledger, profile or
// wallet calls.
type Controller struct {
	wallet   IdentityProvider
	binder   LedgerBinder
	profiles ProfileClient

	audit    AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	observer func(Snapshot)

	mu      sync.Mutex
	state   State
	session *session
	view    *models.DonorView
	err     error
	warning error

	// connecting is set while Connect or Restore runs; identity changes
	// seen meanwhile are rechecked once it ends.
	connecting bool
	missed     bool
	recheck    chan struct{}

	changes   <-chan wallet.Change
	release   func()
	closeOnce sync.Once
	loads     sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = t
	}
}

func WithAudit(p AuditPublisher) Option {
	return func(c *Controller) {
		c.audit = p
	}
}

// WithObserver registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that made the transition and must not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// New builds a controller in Disconnected and subscribes to identity changes
// right away so none are missed before Run starts. Call Close to release the
// subscription.
func New(provider IdentityProvider, binder LedgerBinder, profiles ProfileClient, opts ...Option) *Controller {
	c := &Controller{
		wallet:   provider,
		binder:   binder,
		profiles: profiles,
		state:    StateDisconnected,
		recheck:  make(chan struct{}, 1),
		logger:   slog.Default(),
		tracer:   otel.Tracer("organchain/internal/donor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.changes, c.release = provider.Subscribe()
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Connect prompts the wallet for an account, binds a ledger client to it and
// loads the donor view.
func (c *Controller) Connect(ctx context.Context) Outcome {
	return c.connect(ctx, ActionConnect, c.wallet.Connect)
}

// Restore is Connect without the prompt: it adopts an account the wallet
// already authorised. With none it leaves the controller Disconnected and
// succeeds.
func (c *Controller) Restore(ctx context.Context) Outcome {
	return c.connect(ctx, ActionRestore, c.wallet.Restore)
}

func (c *Controller) connect(ctx context.Context, action Action, acquire func(context.Context) (*wallet.Identity, error)) Outcome {
	ctx, span := c.start(ctx, action)
	defer span.End()

	if _, _, err := c.enter(StateConnecting, false); err != nil {
		return c.finish(ctx, span, failure(action, err))
	}
	defer c.endConnect()

	id, err := acquire(ctx)
	if err != nil {
		c.update(nil, func() { c.disconnectLocked(err) })
		return c.finish(ctx, span, failure(action, err))
	}
	if id == nil {
		c.update(nil, func() { c.disconnectLocked(nil) })
		return c.finish(ctx, span, Outcome{Action: action, Kind: OutcomeSuccess})
	}

	sess, err := c.adopt(id)
	if err != nil {
		c.update(nil, func() { c.disconnectLocked(err) })
		return c.finish(ctx, span, failure(action, err))
	}
	c.emit(ctx, audit.EventWalletConnected, id.Address, "", string(OutcomeSuccess), "")

	out := c.load(ctx, sess, action)
	if out.Kind == OutcomeFailure {
		// Connected; only the view failed to load.
		out.Kind, out.Warning, out.Err = OutcomeSuccessWithWarning, out.Err, nil
	}
	return c.finish(ctx, span, out)
}

// Refresh rebuilds the donor view from both stores.
func (c *Controller) Refresh(ctx context.Context) Outcome {
	ctx, span := c.start(ctx, ActionRefresh)
	defer span.End()

	sess, _, err := c.enter(StateLoading, true)
	if err != nil {
		return c.finish(ctx, span, failure(ActionRefresh, err))
	}
	return c.finish(ctx, span, c.load(ctx, sess, ActionRefresh))
}

// Run applies wallet identity changes until ctx is done or Close is called.
// Loads started for new identities finish before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.loads.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-c.changes:
			if !ok {
				return nil
			}
			c.handleChange(ctx, change)
		case <-c.recheck:
			var prev *wallet.Identity
			c.mu.Lock()
			if c.session != nil {
				prev = c.session.identity
			}
			c.mu.Unlock()
			c.handleChange(ctx, wallet.Change{Previous: prev, Current: c.wallet.Current()})
		}
	}
}

// Close releases the identity subscription, which stops Run.
func (c *Controller) Close() {
	c.closeOnce.Do(c.release)
}

func (c *Controller) handleChange(ctx context.Context, change wallet.Change) {
	// A newer change is already queued; let it win.
	if c.wallet.Current() != change.Current {
		return
	}

	c.mu.Lock()
	if c.connecting {
		c.missed = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if change.Current == nil {
		var prev *session
		c.update(nil, func() {
			prev = c.session
			c.disconnectLocked(nil)
		})
		if prev != nil {
			c.logger.InfoContext(ctx, "donor identity cleared", "identity", prev.address().Short())
			c.emit(ctx, audit.EventIdentityCleared, prev.address(), "", "", "")
		}
		return
	}

	c.mu.Lock()
	same := c.session != nil && c.session.identity == change.Current
	c.mu.Unlock()
	if same {
		return
	}

	sess, err := c.adopt(change.Current)
	if err != nil {
		c.logger.WarnContext(ctx, "bind ledger client failed",
			"identity", change.Current.Address.Short(),
			"error", err,
		)
		c.update(nil, func() { c.disconnectLocked(err) })
		return
	}
	if change.Previous != nil {
		c.emit(ctx, audit.EventIdentityChanged, sess.address(), "", "", "previous "+change.Previous.Address.String())
	}

	c.loads.Add(1)
	go func() {
		defer c.loads.Done()
		lctx, span := c.start(ctx, ActionIdentityChange)
		defer span.End()
		c.finish(lctx, span, c.load(lctx, sess, ActionIdentityChange))
	}()
}

// adopt installs a session for id, reusing the current one when it already
// belongs to id. A session for an identity the wallet has since moved away
// from is returned but not installed, so its results are discarded.
func (c *Controller) adopt(id *wallet.Identity) (*session, error) {
	c.mu.Lock()
	if c.session != nil && c.session.identity == id {
		sess := c.session
		c.mu.Unlock()
		return sess, nil
	}
	c.mu.Unlock()

	client, err := c.binder.Bind(id)
	if err != nil {
		return nil, err
	}
	sess := &session{identity: id, ledger: client}
	c.update(nil, func() {
		if c.session != nil && c.session.identity == id {
			sess = c.session
			return
		}
		if c.wallet.Current() != id {
			return
		}
		c.session = sess
		c.state = StateConnecting
		c.view, c.err, c.warning = nil, nil, nil
	})
	return sess, nil
}

// enter moves to target unless another action owns the controller.
func (c *Controller) enter(target State, needSession bool) (*session, State, error) {
	c.mu.Lock()
	if c.state.busy() {
		state := c.state
		c.mu.Unlock()
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "another donor action is in progress: "+string(state))
	}
	if needSession && c.session == nil {
		c.mu.Unlock()
		return nil, "", dErrors.New(dErrors.CodeWalletUnavailable, "wallet not connected")
	}
	prior := c.state
	c.state = target
	if target == StateConnecting {
		c.connecting = true
	}
	sess := c.session
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return sess, prior, nil
}

func (c *Controller) endConnect() {
	c.mu.Lock()
	missed := c.missed
	c.connecting, c.missed = false, false
	c.mu.Unlock()

	if missed {
		select {
		case c.recheck <- struct{}{}:
		default:
		}
	}
}

// update runs mutate under the lock and notifies the observer. With a
// non-nil sess it does nothing and returns false when sess is stale.
func (c *Controller) update(sess *session, mutate func()) bool {
	c.mu.Lock()
	if sess != nil && !c.currentLocked(sess) {
		c.mu.Unlock()
		return false
	}
	mutate()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *Controller) currentLocked(sess *session) bool {
	return c.session != nil && c.session.identity == sess.identity
}

func (c *Controller) disconnectLocked(err error) {
	c.state = StateDisconnected
	c.session = nil
	c.view = nil
	c.err = err
	c.warning = nil
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{State: c.state, Err: c.err, Warning: c.warning}
	if c.session != nil {
		snap.Identity = c.session.address()
	}
	if c.view != nil {
		v := *c.view
		v.Organs = slices.Clone(v.Organs)
		snap.View = &v
	}
	return snap
}

func (c *Controller) notify(snap Snapshot) {
	if c.observer != nil {
		c.observer(snap)
	}
}

// discard records that a result computed for sess was dropped.
func (c *Controller) discard(ctx context.Context, sess *session, action Action, txID string) Outcome {
	c.metrics.IncrementStaleDiscard(string(action))
	c.logger.InfoContext(ctx, "stale donor result discarded",
		"action", action,
		"identity", sess.address().Short(),
		"tx_id", txID,
	)
	c.emit(ctx, audit.EventStaleResultDiscarded, sess.address(), txID, string(OutcomeDiscarded), string(action))
	return Outcome{Action: action, Kind: OutcomeDiscarded, TxID: txID}
}

func (c *Controller) emit(ctx context.Context, event audit.AuditEvent, addr domain.Address, txID, outcome, reason string) {
	if c.audit == nil {
		return
	}
	err := c.audit.Emit(ctx, audit.Event{
		Identity:  addr,
		Action:    string(event),
		TxID:      txID,
		Outcome:   outcome,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "audit emit failed", "action", event, "error", err)
	}
}

func (c *Controller) start(ctx context.Context, action Action) (context.Context, trace.Span) {
	if requestcontext.RequestID(ctx) == "" {
		ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	}
	return c.tracer.Start(ctx, "donor."+string(action))
}

func (c *Controller) finish(ctx context.Context, span trace.Span, out Outcome) Outcome {
	c.metrics.IncrementActionOutcome(string(out.Action), string(out.Kind))
	span.SetAttributes(attribute.String("outcome", string(out.Kind)))
	if out.TxID != "" {
		span.SetAttributes(attribute.String("tx_id", out.TxID))
	}

	switch out.Kind {
	case OutcomeFailure:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(out.Err)))
		c.logger.WarnContext(ctx, "donor action failed",
			"action", out.Action,
			"code", dErrors.CodeOf(out.Err),
			"error", out.Err,
		)
	case OutcomeSuccessWithWarning:
		c.logger.WarnContext(ctx, "donor action completed with warning",
			"action", out.Action,
			"tx_id", out.TxID,
			"warning", out.Warning,
		)
	default:
		c.logger.InfoContext(ctx, "donor action completed",
			"action", out.Action,
			"outcome", out.Kind,
			"tx_id", out.TxID,
		)
	}
	return out
}

func failure(action Action, err error) Outcome {
	return Outcome{Action: action, Kind: OutcomeFailure, Err: err}
}
