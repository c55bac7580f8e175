// Package store persists donor profiles and recipients.
//
// Stores return pkg/platform/sentinel errors: ErrNotFound for a missing
// wallet address and ErrAlreadyUsed when a wallet address is taken.
package store

import (
	"slices"

	"organchain/internal/models"
	"organchain/pkg/domain"
)

func cloneProfile(p *models.Profile) *models.Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Organs = slices.Clone(p.Organs)
	return &out
}

func cloneRecipient(r *models.Recipient) *models.Recipient {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

func organsFromStrings(in []string) []domain.Organ {
	out := make([]domain.Organ, len(in))
	for i, s := range in {
		out[i] = domain.Organ(s)
	}
	return out
}
