// Package reconcile merges the ledger record and the profile record of one
// identity into a single DonorView.
//
// The ledger wins every field it has a value for and always decides status
// when present. The profile only fills gaps, and its status passes through
// only when there is no ledger record at all.
package reconcile

import (
	"slices"

	"organchain/internal/models"
)

// Merge returns the view for an identity and false when neither store knows
// it. Either input may be nil.
func Merge(ledger *models.LedgerRecord, profile *models.Profile) (models.DonorView, bool) {
	switch {
	case ledger == nil && profile == nil:
		return models.DonorView{}, false
	case ledger == nil:
		return fromProfile(profile), true
	}

	view := models.DonorView{
		FullName:         ledger.FullName,
		Age:              int(ledger.Age),
		BloodType:        ledger.BloodType,
		Organs:           slices.Clone(ledger.Organs),
		RegistrationDate: ledger.RegisteredTime(),
		Status:           statusFromLedger(ledger.IsActive),
		Source:           models.SourceLedger,
	}
	if profile == nil {
		return view, true
	}

	view.Source = models.SourceBoth
	if view.FullName == "" {
		view.FullName = profile.Name
	}
	if view.Age == 0 {
		view.Age = profile.Age
	}
	if view.BloodType == "" {
		view.BloodType = profile.BloodType
	}
	if len(view.Organs) == 0 {
		view.Organs = slices.Clone(profile.Organs)
	}
	if ledger.RegisteredAt == 0 {
		view.RegistrationDate = profile.CreatedAt
	}
	return view, true
}

func fromProfile(p *models.Profile) models.DonorView {
	return models.DonorView{
		FullName:         p.Name,
		Age:              p.Age,
		BloodType:        p.BloodType,
		Organs:           slices.Clone(p.Organs),
		RegistrationDate: p.CreatedAt,
		Status:           p.Status,
		Source:           models.SourceProfile,
	}
}

func statusFromLedger(active bool) models.Status {
	if active {
		return models.StatusActive
	}
	return models.StatusInactive
}
