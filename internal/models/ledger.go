package models

import (
	"time"

	"organchain/pkg/domain"
)

// LedgerRecord is the authoritative donor entry held by the registry
// contract. RegisteredAt and Identity never change once written; IsActive
// only moves from true to false.
type LedgerRecord struct {
	Identity       domain.Address
	FullName       string
	Age            uint8
	BloodType      domain.BloodType
	Organs         []domain.Organ
	MedicalHistory string
	// RegisteredAt is the inclusion time in epoch seconds.
	RegisteredAt int64
	IsActive     bool
}

// RegisteredTime converts RegisteredAt to a UTC time.
func (r *LedgerRecord) RegisteredTime() time.Time {
	return time.Unix(r.RegisteredAt, 0).UTC()
}

// Registration is the payload of a registerDonor transaction.
type Registration struct {
	FullName       string
	Age            uint8
	BloodType      domain.BloodType
	Organs         []domain.Organ
	MedicalHistory string
}
