// Package profile is the off-chain donor profile store: REST handler,
// service rules, persistence and the HTTP client the donor controller uses.
package profile

import (
	"log/slog"

	"organchain/internal/profile/handler"
	"organchain/internal/profile/service"
	"organchain/pkg/platform/middleware/auth"
)

// Service exposes profile and recipient orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the profile service.
type Handler = handler.Handler

// NewService constructs the profile service over the given stores.
func NewService(donors service.DonorStore, recipients service.RecipientStore, opts ...service.Option) *Service {
	return service.New(donors, recipients, opts...)
}

// NewHandler constructs the HTTP handler for /api routes.
func NewHandler(s *Service, validator auth.JWTValidator, adminToken string, logger *slog.Logger) *Handler {
	return handler.New(s, validator, adminToken, logger)
}
