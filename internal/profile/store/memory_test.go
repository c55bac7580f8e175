package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"organchain/internal/models"
	"organchain/pkg/domain"
	"organchain/pkg/platform/sentinel"
)

const (
	addrA = domain.Address("0xab00000000000000000000000000000000000012")
	addrB = domain.Address("0xcd00000000000000000000000000000000000034")
)

func newProfile(addr domain.Address, created time.Time) *models.Profile {
	return &models.Profile{
		ID:            uuid.NewString(),
		WalletAddress: addr,
		Name:          "Ada Donor",
		Age:           34,
		BloodType:     domain.BloodTypeOPos,
		Email:         "ada@example.com",
		Organs:        []domain.Organ{domain.OrganKidney, domain.OrganLiver},
		Status:        models.StatusActive,
		CreatedAt:     created,
	}
}

type DonorStoreSuite struct {
	suite.Suite
	store *InMemoryDonors
	ctx   context.Context
}

func TestDonorStoreSuite(t *testing.T) {
	suite.Run(t, new(DonorStoreSuite))
}

func (s *DonorStoreSuite) SetupTest() {
	s.store = NewInMemoryDonors()
	s.ctx = context.Background()
}

func (s *DonorStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by wallet address", func() {
		p := newProfile(addrA, time.Now())
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByAddress(s.ctx, addrA)
		s.Require().NoError(err)
		s.Equal(p.Name, found.Name)
		s.Equal(p.Organs, found.Organs)
	})

	s.Run("rejects a second profile for the same wallet", func() {
		err := s.store.Create(s.ctx, newProfile(addrA, time.Now()))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("returns ErrNotFound for unknown wallet", func() {
		_, err := s.store.FindByAddress(s.ctx, addrB)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DonorStoreSuite) TestReturnedProfilesAreCopies() {
	p := newProfile(addrA, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, p))
	p.Organs[0] = domain.OrganHeart

	found, err := s.store.FindByAddress(s.ctx, addrA)
	s.Require().NoError(err)
	s.Equal(domain.OrganKidney, found.Organs[0])

	found.Name = "changed"
	again, err := s.store.FindByAddress(s.ctx, addrA)
	s.Require().NoError(err)
	s.Equal("Ada Donor", again.Name)
}

func (s *DonorStoreSuite) TestUpdate() {
	s.Require().NoError(s.store.Create(s.ctx, newProfile(addrA, time.Now())))

	s.Run("applies the mutation", func() {
		updated, err := s.store.Update(s.ctx, addrA, func(p *models.Profile) error {
			models.StatusUpdate(models.StatusInactive).Apply(p)
			return nil
		})
		s.Require().NoError(err)
		s.Equal(models.StatusInactive, updated.Status)
	})

	s.Run("failed mutation leaves the record unchanged", func() {
		boom := errors.New("boom")
		_, err := s.store.Update(s.ctx, addrA, func(p *models.Profile) error {
			p.Name = "half-applied"
			return boom
		})
		s.ErrorIs(err, boom)

		found, err := s.store.FindByAddress(s.ctx, addrA)
		s.Require().NoError(err)
		s.Equal("Ada Donor", found.Name)
	})

	s.Run("unknown wallet is not found", func() {
		_, err := s.store.Update(s.ctx, addrB, func(*models.Profile) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DonorStoreSuite) TestListOrdersByCreation() {
	now := time.Now()
	s.Require().NoError(s.store.Create(s.ctx, newProfile(addrB, now)))
	s.Require().NoError(s.store.Create(s.ctx, newProfile(addrA, now.Add(-time.Hour))))

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(addrA, list[0].WalletAddress)
	s.Equal(addrB, list[1].WalletAddress)
}

func TestRecipientStoreOrdersByUrgency(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryRecipients()
	now := time.Now()

	for _, r := range []*models.Recipient{
		{ID: uuid.NewString(), WalletAddress: addrA, UrgencyLevel: 3, Status: models.RecipientWaiting, CreatedAt: now},
		{ID: uuid.NewString(), WalletAddress: addrB, UrgencyLevel: 9, Status: models.RecipientWaiting, CreatedAt: now},
	} {
		if err := st.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].WalletAddress != addrB {
		t.Fatalf("expected most urgent recipient first, got %+v", list)
	}

	if err := st.Create(ctx, &models.Recipient{WalletAddress: addrA}); !errors.Is(err, sentinel.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}
