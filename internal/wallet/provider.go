package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
)

// subscriberBuffer bounds undelivered changes per subscriber. When full the
// oldest change is dropped; the newest is always delivered.
const subscriberBuffer = 8

// Provider owns the current identity and fans out changes to subscribers.
type Provider struct {
	backend Backend
	logger  *slog.Logger
	current atomic.Pointer[Identity]

	mu      sync.Mutex
	subs    map[uint64]chan Change
	nextSub uint64
	closed  bool

	stopWatch func()
	watchDone chan struct{}
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider starts watching backend for account changes. A nil backend
// models "no wallet installed": Connect reports wallet_unavailable.
func NewProvider(backend Backend, opts ...Option) *Provider {
	p := &Provider{
		backend: backend,
		logger:  slog.Default(),
		subs:    make(map[uint64]chan Change),
	}
	for _, opt := range opts {
		opt(p)
	}
	if backend != nil {
		updates, stop := backend.Watch()
		p.stopWatch = stop
		p.watchDone = make(chan struct{})
		go p.watch(updates)
	}
	return p
}

// Connect prompts the backend for account access and installs the first
// authorised account as the current identity.
func (p *Provider) Connect(ctx context.Context) (*Identity, error) {
	if p.backend == nil {
		return nil, dErrors.New(dErrors.CodeWalletUnavailable, "no wallet backend installed")
	}
	accounts, err := p.backend.RequestAccounts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if len(accounts) == 0 {
		return nil, dErrors.New(dErrors.CodeUserRejected, "no account authorised")
	}
	return p.adopt(accounts[0])
}

// Restore re-installs an identity from accounts the user already authorised,
// without prompting. It returns nil when there is none.
func (p *Provider) Restore(ctx context.Context) (*Identity, error) {
	if p.backend == nil {
		return nil, nil
	}
	accounts, err := p.backend.Accounts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return p.adopt(accounts[0])
}

// Current returns the last known identity without prompting.
func (p *Provider) Current() *Identity {
	return p.current.Load()
}

// Subscribe registers for identity changes. Call release when done; the
// channel is closed on release or when the provider closes.
func (p *Provider) Subscribe() (<-chan Change, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Change, subscriberBuffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the backend watch and closes every subscription.
func (p *Provider) Close() {
	if p.stopWatch != nil {
		p.stopWatch()
		<-p.watchDone
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

func (p *Provider) watch(updates <-chan []domain.Address) {
	defer close(p.watchDone)
	for accounts := range updates {
		if len(accounts) == 0 {
			p.clear()
			continue
		}
		if _, err := p.adopt(accounts[0]); err != nil {
			p.logger.Warn("wallet account change ignored",
				"identity", accounts[0].Short(),
				"error", err,
			)
		}
	}
}

func (p *Provider) adopt(addr domain.Address) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur := p.current.Load(); cur != nil && cur.Address == addr {
		return cur, nil
	}
	signer, err := p.backend.Signer(addr)
	if err != nil {
		return nil, classify(err)
	}
	next := &Identity{Address: addr, Signer: signer}
	prev := p.current.Swap(next)
	p.logger.Info("wallet identity changed", "identity", addr.Short())
	p.broadcastLocked(Change{Previous: prev, Current: next})
	return next, nil
}

func (p *Provider) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.current.Swap(nil)
	if prev == nil {
		return
	}
	p.logger.Info("wallet identity cleared", "identity", prev.Address.Short())
	p.broadcastLocked(Change{Previous: prev})
}

func (p *Provider) broadcastLocked(c Change) {
	if p.closed {
		return
	}
	for _, ch := range p.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUserRejected):
		return dErrors.Wrap(err, dErrors.CodeUserRejected, "wallet request rejected")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeUserRejected, "wallet request abandoned")
	default:
		return dErrors.Wrap(err, dErrors.CodeWalletUnavailable, "wallet backend unavailable")
	}
}
