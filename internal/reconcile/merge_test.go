package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organchain/internal/models"
	"organchain/pkg/domain"
)

const addr = domain.Address("0xab00000000000000000000000000000000000012")

var registeredAt = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func ledgerRecord(active bool) *models.LedgerRecord {
	return &models.LedgerRecord{
		Identity:     addr,
		FullName:     "Ada Donor",
		Age:          34,
		BloodType:    domain.BloodTypeOPos,
		Organs:       []domain.Organ{domain.OrganKidney, domain.OrganLiver},
		RegisteredAt: registeredAt.Unix(),
		IsActive:     active,
	}
}

func profileRecord(status models.Status) *models.Profile {
	return &models.Profile{
		WalletAddress: addr,
		Name:          "Ada P. Donor",
		Age:           35,
		BloodType:     domain.BloodTypeANeg,
		Email:         "ada@example.com",
		Organs:        []domain.Organ{domain.OrganHeart},
		Status:        status,
		CreatedAt:     registeredAt.Add(time.Hour),
	}
}

func TestBothAbsentIsNotRegistered(t *testing.T) {
	_, ok := Merge(nil, nil)
	assert.False(t, ok)
}

func TestLedgerFieldsWin(t *testing.T) {
	view, ok := Merge(ledgerRecord(true), profileRecord(models.StatusPending))
	require.True(t, ok)

	assert.Equal(t, "Ada Donor", view.FullName)
	assert.Equal(t, 34, view.Age)
	assert.Equal(t, domain.BloodTypeOPos, view.BloodType)
	assert.Equal(t, []domain.Organ{domain.OrganKidney, domain.OrganLiver}, view.Organs)
	assert.True(t, registeredAt.Equal(view.RegistrationDate))
	assert.Equal(t, models.StatusActive, view.Status)
	assert.Equal(t, models.SourceBoth, view.Source)
}

func TestEmptyLedgerFieldsFallBackToProfile(t *testing.T) {
	l := ledgerRecord(true)
	l.FullName = ""
	l.Age = 0
	l.BloodType = ""
	l.Organs = nil
	l.RegisteredAt = 0
	p := profileRecord(models.StatusActive)

	view, ok := Merge(l, p)
	require.True(t, ok)
	assert.Equal(t, p.Name, view.FullName)
	assert.Equal(t, p.Age, view.Age)
	assert.Equal(t, p.BloodType, view.BloodType)
	assert.Equal(t, p.Organs, view.Organs)
	assert.Equal(t, p.CreatedAt, view.RegistrationDate)
}

// The ledger's activity flag decides status whatever the profile says.
func TestRevokedLedgerOverridesEveryProfileStatus(t *testing.T) {
	for _, status := range []models.Status{models.StatusActive, models.StatusPending, models.StatusInactive} {
		view, ok := Merge(ledgerRecord(false), profileRecord(status))
		require.True(t, ok)
		assert.Equal(t, models.StatusInactive, view.Status, "profile status %q", status)
	}
	for _, status := range []models.Status{models.StatusActive, models.StatusPending, models.StatusInactive} {
		view, _ := Merge(ledgerRecord(true), profileRecord(status))
		assert.Equal(t, models.StatusActive, view.Status, "profile status %q", status)
	}
}

func TestLedgerOnly(t *testing.T) {
	view, ok := Merge(ledgerRecord(true), nil)
	require.True(t, ok)
	assert.Equal(t, models.SourceLedger, view.Source)
	assert.Equal(t, "Ada Donor", view.FullName)
	assert.Equal(t, models.StatusActive, view.Status)
}

// Without a ledger record the view is the profile verbatim, status included.
func TestProfileOnlyPassesStatusThrough(t *testing.T) {
	for _, status := range []models.Status{models.StatusActive, models.StatusPending, models.StatusInactive} {
		p := profileRecord(status)
		view, ok := Merge(nil, p)
		require.True(t, ok)
		assert.Equal(t, models.SourceProfile, view.Source)
		assert.Equal(t, status, view.Status)
		assert.Equal(t, p.Name, view.FullName)
		assert.Equal(t, p.Age, view.Age)
		assert.Equal(t, p.BloodType, view.BloodType)
		assert.Equal(t, p.Organs, view.Organs)
		assert.Equal(t, p.CreatedAt, view.RegistrationDate)
	}
}

func TestViewDoesNotAliasInputs(t *testing.T) {
	l := ledgerRecord(true)
	view, _ := Merge(l, nil)
	view.Organs[0] = domain.OrganHeart
	assert.Equal(t, domain.OrganKidney, l.Organs[0])
}
