package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"organchain/internal/donor"
	jwttoken "organchain/internal/jwt_token"
	"organchain/internal/ledger"
	"organchain/internal/ledger/fabric"
	ledgermem "organchain/internal/ledger/memory"
	"organchain/internal/ledger/pending"
	"organchain/internal/platform/config"
	"organchain/internal/platform/metrics"
	platformredis "organchain/internal/platform/redis"
	"organchain/internal/profile/client"
	"organchain/internal/wallet"
	"organchain/internal/wallet/keystore"
	walletmem "organchain/internal/wallet/memory"
	"organchain/pkg/domain"
	"organchain/pkg/platform/audit/publisher"
	auditkafka "organchain/pkg/platform/audit/store/kafka"
	auditmem "organchain/pkg/platform/audit/store/memory"
	"organchain/pkg/platform/circuit"
)

type appOptions struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	logger    *slog.Logger
	// registry receives client metrics; a fresh one is used when nil.
	registry prometheus.Registerer
}

// accountBackend is the wallet surface the shell drives directly.
type accountBackend interface {
	wallet.Backend
	Switch(addr domain.Address) error
	Lock()
}

// keystoreAccounts names keystore selection the way the shell expects.
type keystoreAccounts struct {
	*keystore.Keystore
}

func (k keystoreAccounts) Switch(addr domain.Address) error {
	return k.Select(addr)
}

type app struct {
	cfg    config.Config
	log    *slog.Logger
	in     *bufio.Reader
	out    io.Writer
	closer []func()

	accounts   accountBackend
	provider   *wallet.Provider
	journal    pending.Journal
	audit      *publisher.Publisher
	controller *donor.Controller
	runDone    chan struct{}
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg, log: opts.logger, in: opts.in, out: opts.out}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewWithRegisterer(reg)

	a.accounts, err = openWallet(cfg.Wallet, opts)
	if err != nil {
		return nil, err
	}
	a.provider = wallet.NewProvider(a.accounts, wallet.WithLogger(a.log))
	a.closer = append(a.closer, a.provider.Close)

	transport, err := a.openTransport(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	if err := a.openJournal(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	binder := ledger.NewBinder(transport,
		ledger.WithConfirmTimeout(cfg.Ledger.ConfirmTimeout),
		ledger.WithJournal(a.journal),
		ledger.WithMetrics(m),
		ledger.WithLogger(a.log),
	)

	profiles, err := newProfileClient(cfg, a.log, m)
	if err != nil {
		return nil, err
	}
	if err := a.openAudit(ctx, cfg.Audit); err != nil {
		return nil, err
	}

	controllerOpts := []donor.Option{
		donor.WithLogger(a.log),
		donor.WithMetrics(m),
	}
	if a.audit != nil {
		controllerOpts = append(controllerOpts, donor.WithAudit(a.audit))
	}
	a.controller = donor.New(a.provider, donor.BindWith(binder), profiles, controllerOpts...)

	runCtx, cancel := context.WithCancel(context.Background())
	a.runDone = make(chan struct{})
	go func() {
		defer close(a.runDone)
		a.controller.Run(runCtx)
	}()
	// Provider goes last: the controller must stop before its feed closes.
	a.closer = append(a.closer, func() {
		a.controller.Close()
		cancel()
		<-a.runDone
	})
	return a, nil
}

func openWallet(cfg config.Wallet, opts appOptions) (accountBackend, error) {
	switch cfg.Backend {
	case "keystore":
		var approver keystore.Approver = keystore.AutoApprove{}
		if !opts.assumeYes {
			approver = keystore.NewPromptApprover(opts.in, opts.out)
		}
		ks, err := keystore.Open(cfg.KeystoreDir, cfg.MSPID, approver)
		if err != nil {
			return nil, err
		}
		if cfg.Account != "" {
			addr, err := domain.ParseAddress(cfg.Account)
			if err != nil {
				return nil, err
			}
			if err := ks.Select(addr); err != nil {
				return nil, err
			}
		}
		return keystoreAccounts{ks}, nil
	default:
		w := walletmem.New()
		if cfg.Account != "" {
			addr, err := domain.ParseAddress(cfg.Account)
			if err != nil {
				return nil, err
			}
			if err := w.AddAccount(addr); err != nil {
				return nil, err
			}
			return w, nil
		}
		if _, err := w.NewAccount(); err != nil {
			return nil, err
		}
		return w, nil
	}
}

func (a *app) openTransport(cfg config.Ledger) (ledger.Transport, error) {
	if cfg.Transport != "fabric" {
		return ledgermem.New(ledgermem.WithConfirmDelay(cfg.ConfirmDelay)), nil
	}
	conn, err := fabric.NewGrpcConnection(cfg.PeerEndpoint, cfg.TLSCertPath, cfg.PeerHostAlias)
	if err != nil {
		return nil, err
	}
	a.closer = append(a.closer, func() {
		if err := conn.Close(); err != nil {
			a.log.Warn("close peer connection", "error", err)
		}
	})
	t := fabric.New(conn, fabric.Config{
		Channel:         cfg.Channel,
		Chaincode:       cfg.ContractAddress,
		EvaluateTimeout: cfg.EvaluateTimeout,
		EndorseTimeout:  cfg.SubmitTimeout,
		SubmitTimeout:   cfg.SubmitTimeout,
	}, fabric.WithLogger(a.log))
	a.closer = append(a.closer, func() {
		if err := t.Close(); err != nil {
			a.log.Warn("close gateways", "error", err)
		}
	})
	return t, nil
}

// openJournal uses Redis when configured so pending writes survive a
// restart of the client.
func (a *app) openJournal(ctx context.Context, cfg config.RedisConfig) error {
	rc, err := platformredis.New(ctx, cfg)
	if err != nil {
		return err
	}
	if rc == nil {
		a.journal = pending.NewInMemoryJournal()
		return nil
	}
	a.closer = append(a.closer, func() {
		if err := rc.Close(); err != nil {
			a.log.Warn("close redis", "error", err)
		}
	})
	a.journal = pending.NewRedisJournal(rc.Client, pending.WithTTL(cfg.PendingTTL))
	return nil
}

func newProfileClient(cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*client.Client, error) {
	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	return client.New(cfg.Profile.BaseURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Profile.Timeout}),
		client.WithTokenSource(client.NewServiceTokens(jwt, cfg.Profile.ClientID, cfg.Profile.TokenTTL)),
		client.WithBreaker(circuit.New("profile-store", circuit.WithFailureThreshold(cfg.Profile.FailureThreshold))),
		client.WithLogger(log),
		client.WithMetrics(m),
	)
}

func (a *app) openAudit(ctx context.Context, cfg config.Audit) error {
	switch cfg.Sink {
	case "memory":
		a.audit = publisher.NewPublisher(auditmem.NewInMemoryStore(),
			publisher.WithAsyncBuffer(cfg.Buffer),
			publisher.WithLogger(a.log),
		)
		a.closer = append(a.closer, a.audit.Close)
	case "kafka":
		store, err := auditkafka.New(cfg.Brokers, cfg.Topic)
		if err != nil {
			return err
		}
		a.closer = append(a.closer, store.Close)
		if err := store.EnsureTopic(ctx, 1, 1); err != nil {
			return fmt.Errorf("ensure audit topic: %w", err)
		}
		a.audit = publisher.NewPublisher(store,
			publisher.WithAsyncBuffer(cfg.Buffer),
			publisher.WithLogger(a.log),
		)
		a.closer = append(a.closer, a.audit.Close)
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		a.closer[i]()
	}
	a.closer = nil
}
