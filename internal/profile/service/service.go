// Package service owns profile-store business rules: validation, defaults
// and translation of store sentinels into coded errors.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"organchain/internal/models"
	"organchain/internal/platform/metrics"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/platform/sentinel"
	"organchain/pkg/requestcontext"
)

type DonorStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByAddress(ctx context.Context, addr domain.Address) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	Update(ctx context.Context, addr domain.Address, mutate func(*models.Profile) error) (*models.Profile, error)
}

type RecipientStore interface {
	Create(ctx context.Context, r *models.Recipient) error
	FindByAddress(ctx context.Context, addr domain.Address) (*models.Recipient, error)
	List(ctx context.Context) ([]*models.Recipient, error)
	Update(ctx context.Context, addr domain.Address, mutate func(*models.Recipient) error) (*models.Recipient, error)
}

// Service manages donor profiles and recipients.
type Service struct {
	donors     DonorStore
	recipients RecipientStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(donors DonorStore, recipients RecipientStore, opts ...Option) *Service {
	s := &Service{donors: donors, recipients: recipients, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDonor validates p, fills defaults and stores it. A wallet address
// may hold only one profile.
func (s *Service) CreateDonor(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	p.ID = uuid.NewString()
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = requestcontext.Now(ctx)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	if err := s.donors.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "donor profile already exists for this wallet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor profile")
	}

	s.metrics.IncrementProfilesCreated()
	s.logger.InfoContext(ctx, "donor profile created",
		"identity", p.WalletAddress.Short(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

func (s *Service) GetDonor(ctx context.Context, addr domain.Address) (*models.Profile, error) {
	p, err := s.donors.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor profile")
	}
	return p, nil
}

func (s *Service) ListDonors(ctx context.Context) ([]*models.Profile, error) {
	list, err := s.donors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donor profiles")
	}
	return list, nil
}

// UpdateDonor applies a partial update. The result must still validate;
// otherwise nothing is written.
func (s *Service) UpdateDonor(ctx context.Context, addr domain.Address, upd models.ProfileUpdate) (*models.Profile, error) {
	p, err := s.donors.Update(ctx, addr, func(p *models.Profile) error {
		upd.Apply(p)
		return validateProfile(p)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor profile")
	}

	if upd.Status != nil {
		s.logger.InfoContext(ctx, "donor status changed",
			"identity", addr.Short(),
			"status", p.Status,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return p, nil
}

func (s *Service) CreateRecipient(ctx context.Context, r *models.Recipient) (*models.Recipient, error) {
	r.ID = uuid.NewString()
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Status == "" {
		r.Status = models.RecipientWaiting
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = requestcontext.Now(ctx)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if err := validateRecipient(r); err != nil {
		return nil, err
	}

	if err := s.recipients.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "recipient already exists for this wallet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create recipient")
	}
	s.logger.InfoContext(ctx, "recipient created",
		"identity", r.WalletAddress.Short(),
		"urgency", r.UrgencyLevel,
		"request_id", requestcontext.RequestID(ctx),
	)
	return r, nil
}

func (s *Service) GetRecipient(ctx context.Context, addr domain.Address) (*models.Recipient, error) {
	r, err := s.recipients.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recipient")
	}
	return r, nil
}

func (s *Service) ListRecipients(ctx context.Context) ([]*models.Recipient, error) {
	list, err := s.recipients.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recipients")
	}
	return list, nil
}

func (s *Service) UpdateRecipient(ctx context.Context, addr domain.Address, upd models.RecipientUpdate) (*models.Recipient, error) {
	r, err := s.recipients.Update(ctx, addr, func(r *models.Recipient) error {
		upd.Apply(r)
		return validateRecipient(r)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update recipient")
	}
	return r, nil
}
