package store

import (
	"context"
	"sort"
	"sync"

	"organchain/internal/models"
	"organchain/pkg/domain"
	"organchain/pkg/platform/sentinel"
)

// InMemoryDonors is a DonorStore for tests and single-process deployments.
type InMemoryDonors struct {
	mu       sync.RWMutex
	profiles map[domain.Address]*models.Profile
}

func NewInMemoryDonors() *InMemoryDonors {
	return &InMemoryDonors{profiles: make(map[domain.Address]*models.Profile)}
}

func (s *InMemoryDonors) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.WalletAddress]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.profiles[p.WalletAddress] = cloneProfile(p)
	return nil
}

func (s *InMemoryDonors) FindByAddress(_ context.Context, addr domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProfile(p), nil
}

// List returns profiles oldest first.
func (s *InMemoryDonors) List(_ context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].WalletAddress < out[j].WalletAddress
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update applies mutate to a copy and stores it only when mutate succeeds.
func (s *InMemoryDonors) Update(_ context.Context, addr domain.Address, mutate func(*models.Profile) error) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.profiles[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := cloneProfile(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	s.profiles[addr] = next
	return cloneProfile(next), nil
}

// InMemoryRecipients is a RecipientStore for tests and single-process
// deployments.
type InMemoryRecipients struct {
	mu         sync.RWMutex
	recipients map[domain.Address]*models.Recipient
}

func NewInMemoryRecipients() *InMemoryRecipients {
	return &InMemoryRecipients{recipients: make(map[domain.Address]*models.Recipient)}
}

func (s *InMemoryRecipients) Create(_ context.Context, r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipients[r.WalletAddress]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.recipients[r.WalletAddress] = cloneRecipient(r)
	return nil
}

func (s *InMemoryRecipients) FindByAddress(_ context.Context, addr domain.Address) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecipient(r), nil
}

// List returns recipients most urgent first, then oldest first.
func (s *InMemoryRecipients) List(_ context.Context) ([]*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		out = append(out, cloneRecipient(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UrgencyLevel != out[j].UrgencyLevel {
			return out[i].UrgencyLevel > out[j].UrgencyLevel
		}
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].WalletAddress < out[j].WalletAddress
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryRecipients) Update(_ context.Context, addr domain.Address, mutate func(*models.Recipient) error) (*models.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.recipients[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := cloneRecipient(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	s.recipients[addr] = next
	return cloneRecipient(next), nil
}
