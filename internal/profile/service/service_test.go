package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks DonorStore,RecipientStore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"organchain/internal/models"
	"organchain/internal/platform/metrics"
	"organchain/internal/profile/service/mocks"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/platform/sentinel"
	"organchain/pkg/requestcontext"
)

// Service tests cover defaulting, validation and sentinel translation. Store
// behaviour is covered by the store package.

const donorAddr = domain.Address("0xab00000000000000000000000000000000000012")

type ServiceSuite struct {
	suite.Suite
	ctrl           *gomock.Controller
	mockDonors     *mocks.MockDonorStore
	mockRecipients *mocks.MockRecipientStore
	metrics        *metrics.Metrics
	service        *Service
	ctx            context.Context
	now            time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockDonors = mocks.NewMockDonorStore(s.ctrl)
	s.mockRecipients = mocks.NewMockRecipientStore(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = New(s.mockDonors, s.mockRecipients,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validProfile() *models.Profile {
	return &models.Profile{
		WalletAddress: donorAddr,
		Name:          " Ada Donor ",
		Age:           34,
		BloodType:     domain.BloodTypeOPos,
		Email:         "ada@example.com",
		Organs:        []domain.Organ{domain.OrganKidney, domain.OrganLiver},
	}
}

func (s *ServiceSuite) TestCreateDonor() {
	s.Run("fills defaults and stores the profile", func() {
		s.mockDonors.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Profile) error {
				s.NotEmpty(p.ID)
				return nil
			})

		p, err := s.service.CreateDonor(s.ctx, validProfile())
		s.Require().NoError(err)
		s.Equal("Ada Donor", p.Name)
		s.Equal(models.StatusActive, p.Status)
		s.Equal(s.now, p.CreatedAt)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProfilesCreated))
	})

	s.Run("duplicate wallet is a conflict", func() {
		s.mockDonors.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.CreateDonor(s.ctx, validProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("store failure is internal", func() {
		s.mockDonors.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := s.service.CreateDonor(s.ctx, validProfile())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestCreateDonorValidation() {
	cases := []struct {
		name   string
		mutate func(*models.Profile)
	}{
		{"missing wallet", func(p *models.Profile) { p.WalletAddress = "" }},
		{"missing name", func(p *models.Profile) { p.Name = "  " }},
		{"age out of range", func(p *models.Profile) { p.Age = 151 }},
		{"unknown blood type", func(p *models.Profile) { p.BloodType = "C+" }},
		{"missing email", func(p *models.Profile) { p.Email = "" }},
		{"malformed email", func(p *models.Profile) { p.Email = "not-an-email" }},
		{"no organs", func(p *models.Profile) { p.Organs = nil }},
		{"unknown organ", func(p *models.Profile) { p.Organs = []domain.Organ{"spleen"} }},
		{"unknown status", func(p *models.Profile) { p.Status = "deleted" }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			p := validProfile()
			tc.mutate(p)
			_, err := s.service.CreateDonor(s.ctx, p)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestGetDonor() {
	s.Run("missing profile is not found", func() {
		s.mockDonors.EXPECT().FindByAddress(gomock.Any(), donorAddr).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetDonor(s.ctx, donorAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("returns the stored profile", func() {
		stored := validProfile()
		s.mockDonors.EXPECT().FindByAddress(gomock.Any(), donorAddr).Return(stored, nil)

		p, err := s.service.GetDonor(s.ctx, donorAddr)
		s.Require().NoError(err)
		s.Same(stored, p)
	})
}

func (s *ServiceSuite) TestUpdateDonor() {
	s.Run("applies a status update", func() {
		stored := validProfile()
		stored.Status = models.StatusActive
		s.mockDonors.EXPECT().Update(gomock.Any(), donorAddr, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.Address, mutate func(*models.Profile) error) (*models.Profile, error) {
				if err := mutate(stored); err != nil {
					return nil, err
				}
				return stored, nil
			})

		p, err := s.service.UpdateDonor(s.ctx, donorAddr, models.StatusUpdate(models.StatusInactive))
		s.Require().NoError(err)
		s.Equal(models.StatusInactive, p.Status)
	})

	s.Run("invalid result is rejected", func() {
		stored := validProfile()
		stored.Status = models.StatusActive
		s.mockDonors.EXPECT().Update(gomock.Any(), donorAddr, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.Address, mutate func(*models.Profile) error) (*models.Profile, error) {
				return nil, mutate(stored)
			})

		_, err := s.service.UpdateDonor(s.ctx, donorAddr, models.StatusUpdate("deleted"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing profile is not found", func() {
		s.mockDonors.EXPECT().Update(gomock.Any(), donorAddr, gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.UpdateDonor(s.ctx, donorAddr, models.StatusUpdate(models.StatusInactive))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCreateRecipient() {
	valid := func() *models.Recipient {
		return &models.Recipient{
			WalletAddress: donorAddr,
			Name:          "Rex Recipient",
			Age:           51,
			BloodType:     domain.BloodTypeABNeg,
			Email:         "rex@example.com",
			OrganNeeded:   "Kidney",
			UrgencyLevel:  7,
		}
	}

	s.Run("defaults status to waiting and normalises organ", func() {
		s.mockRecipients.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		r, err := s.service.CreateRecipient(s.ctx, valid())
		s.Require().NoError(err)
		s.Equal(models.RecipientWaiting, r.Status)
		s.Equal(domain.OrganKidney, r.OrganNeeded)
	})

	s.Run("urgency outside 1..10 is rejected", func() {
		for _, urgency := range []int{0, 11} {
			r := valid()
			r.UrgencyLevel = urgency
			_, err := s.service.CreateRecipient(s.ctx, r)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	s.Run("duplicate wallet is a conflict", func() {
		s.mockRecipients.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.CreateRecipient(s.ctx, valid())
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})
}
