// Package handler serves the profile-store REST API under /api.
//
// Reads are public. Donor writes need a service token whose identity owns
// the wallet address; recipient writes need the admin token.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"organchain/internal/models"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/platform/httputil"
	"organchain/pkg/platform/middleware/admin"
	"organchain/pkg/platform/middleware/auth"
	"organchain/pkg/requestcontext"
)

// Service is the profile service as seen by HTTP.
type Service interface {
	CreateDonor(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetDonor(ctx context.Context, addr domain.Address) (*models.Profile, error)
	ListDonors(ctx context.Context) ([]*models.Profile, error)
	UpdateDonor(ctx context.Context, addr domain.Address, upd models.ProfileUpdate) (*models.Profile, error)
	CreateRecipient(ctx context.Context, r *models.Recipient) (*models.Recipient, error)
	GetRecipient(ctx context.Context, addr domain.Address) (*models.Recipient, error)
	ListRecipients(ctx context.Context) ([]*models.Recipient, error)
	UpdateRecipient(ctx context.Context, addr domain.Address, upd models.RecipientUpdate) (*models.Recipient, error)
}

type Handler struct {
	service    Service
	validator  auth.JWTValidator
	adminToken string
	logger     *slog.Logger
}

func New(service Service, validator auth.JWTValidator, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		validator:  validator,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Register mounts the routes under /api.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/donors", h.handleListDonors)
		r.Get("/donors/{walletAddress}", h.handleGetDonor)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.validator, h.logger))
			r.Post("/donors", h.handleCreateDonor)
			r.Patch("/donors/{walletAddress}", h.handleUpdateDonor)
		})

		r.Get("/recipients", h.handleListRecipients)
		r.Get("/recipients/{walletAddress}", h.handleGetRecipient)
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
			r.Post("/recipients", h.handleCreateRecipient)
			r.Patch("/recipients/{walletAddress}", h.handleUpdateRecipient)
		})
	})
}

func (h *Handler) handleCreateDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateDonorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid create donor request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	p, err := req.ToProfile()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.requireOwner(ctx, p.WalletAddress); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.CreateDonor(ctx, p)
	if err != nil {
		h.logFailure(ctx, "failed to create donor profile", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListDonors(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDonors(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "failed to list donor profiles", err)
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.Profile{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "walletAddress"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetDonor(r.Context(), addr)
	if err != nil {
		h.logFailure(r.Context(), "failed to load donor profile", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := domain.ParseAddress(chi.URLParam(r, "walletAddress"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.requireOwner(ctx, addr); err != nil {
		httputil.WriteError(w, err)
		return
	}

	var upd models.ProfileUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := normalizeProfileUpdate(&upd); err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.service.UpdateDonor(ctx, addr, upd)
	if err != nil {
		h.logFailure(ctx, "failed to update donor profile", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateRecipientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := req.ToRecipient()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := h.service.CreateRecipient(ctx, rec)
	if err != nil {
		h.logFailure(ctx, "failed to create recipient", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRecipients(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "failed to list recipients", err)
		httputil.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.Recipient{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "walletAddress"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.GetRecipient(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdateRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := domain.ParseAddress(chi.URLParam(r, "walletAddress"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var upd models.RecipientUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.UpdateRecipient(ctx, addr, upd)
	if err != nil {
		h.logFailure(ctx, "failed to update recipient", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// requireOwner checks that the authenticated identity is the record's wallet.
func (h *Handler) requireOwner(ctx context.Context, addr domain.Address) error {
	caller := requestcontext.Identity(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "missing identity")
	}
	if caller != addr {
		h.logger.WarnContext(ctx, "identity does not own record",
			"identity", caller.Short(),
			"record", addr.Short(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeForbidden, "identity does not own this record")
	}
	return nil
}

// logFailure logs server-side failures; client errors are not logged.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
