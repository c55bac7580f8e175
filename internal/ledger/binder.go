package ledger

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"organchain/internal/ledger/pending"
	"organchain/internal/platform/metrics"
	"organchain/internal/wallet"
	dErrors "organchain/pkg/domain-errors"
)

// Binder builds a Client per identity over one transport.
type Binder struct {
	transport      Transport
	confirmTimeout time.Duration
	journal        pending.Journal
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
}

type Option func(*Binder)

func WithConfirmTimeout(d time.Duration) Option {
	return func(b *Binder) {
		if d > 0 {
			b.confirmTimeout = d
		}
	}
}

func WithJournal(j pending.Journal) Option {
	return func(b *Binder) {
		b.journal = j
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Binder) {
		b.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		b.logger = logger
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(b *Binder) {
		b.tracer = t
	}
}

func NewBinder(transport Transport, opts ...Option) *Binder {
	b := &Binder{
		transport:      transport,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         slog.Default(),
		tracer:         defaultTracer(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind returns a client signing as id.
func (b *Binder) Bind(id *wallet.Identity) (*Client, error) {
	if id == nil {
		return nil, dErrors.New(dErrors.CodeWalletUnavailable, "no identity to bind")
	}
	contract, err := b.transport.Bind(id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "bind ledger contract")
	}
	return &Client{
		contract:       contract,
		identity:       id,
		confirmTimeout: b.confirmTimeout,
		journal:        b.journal,
		metrics:        b.metrics,
		logger:         b.logger,
		tracer:         b.tracer,
	}, nil
}
