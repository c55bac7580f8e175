// Command server runs the profile store: the off-chain REST service holding
// donor profiles and recipient records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "organchain/internal/jwt_token"
	"organchain/internal/platform/config"
	"organchain/internal/platform/httpserver"
	"organchain/internal/platform/logger"
	"organchain/internal/platform/metrics"
	"organchain/internal/profile"
	"organchain/internal/profile/service"
	"organchain/pkg/platform/middleware/metadata"
	"organchain/pkg/platform/middleware/request"
	"organchain/pkg/platform/middleware/requesttime"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

// run wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/profile.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Warn("close profile store", "error", err)
		}
	}()

	svc := profile.NewService(st.donors, st.recipients,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	h := profile.NewHandler(svc, jwttoken.NewJWTServiceAdapter(jwt), cfg.Server.AdminToken, log)

	router := newRouter(log, m, h)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.InfoContext(ctx, "starting profile store",
		"addr", cfg.Server.Addr,
		"store", cfg.Server.Store,
	)
	return httpserver.Run(ctx, srv, log)
}

func newRouter(log *slog.Logger, m *metrics.Metrics, h *profile.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Recoverer(log))
	r.Use(request.Logger(log, m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)
	return r
}
