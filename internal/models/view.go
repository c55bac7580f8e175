package models

import (
	"time"

	"organchain/pkg/domain"
)

// Source records which store contributed to a DonorView.
type Source string

const (
	SourceLedger  Source = "ledger"
	SourceProfile Source = "profile"
	SourceBoth    Source = "ledger+profile"
)

// DonorView is the merged, display-ready donor record. It is rebuilt on
// every read and never persisted.
type DonorView struct {
	FullName         string
	Age              int
	BloodType        domain.BloodType
	Organs           []domain.Organ
	RegistrationDate time.Time
	Status           Status
	Source           Source
}
