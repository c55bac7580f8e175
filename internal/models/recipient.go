package models

import (
	"time"

	"organchain/pkg/domain"
)

type RecipientStatus string

const (
	RecipientWaiting      RecipientStatus = "waiting"
	RecipientMatched      RecipientStatus = "matched"
	RecipientTransplanted RecipientStatus = "transplanted"
)

func (s RecipientStatus) IsValid() bool {
	switch s {
	case RecipientWaiting, RecipientMatched, RecipientTransplanted:
		return true
	}
	return false
}

const (
	MinUrgency = 1
	MaxUrgency = 10
)

// Recipient is a patient waiting for an organ. Recipients live only in the
// profile store.
type Recipient struct {
	ID             string           `json:"id"`
	WalletAddress  domain.Address   `json:"walletAddress"`
	Name           string           `json:"name"`
	Age            int              `json:"age"`
	BloodType      domain.BloodType `json:"bloodType"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone,omitempty"`
	OrganNeeded    domain.Organ     `json:"organNeeded"`
	UrgencyLevel   int              `json:"urgencyLevel"`
	MedicalHistory string           `json:"medicalHistory,omitempty"`
	DoctorInfo     string           `json:"doctorInfo,omitempty"`
	Status         RecipientStatus  `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type RecipientUpdate struct {
	Phone          *string          `json:"phone,omitempty"`
	Email          *string          `json:"email,omitempty"`
	UrgencyLevel   *int             `json:"urgencyLevel,omitempty"`
	MedicalHistory *string          `json:"medicalHistory,omitempty"`
	DoctorInfo     *string          `json:"doctorInfo,omitempty"`
	Status         *RecipientStatus `json:"status,omitempty"`
}

func (u RecipientUpdate) Apply(r *Recipient) {
	if u.Phone != nil {
		r.Phone = *u.Phone
	}
	if u.Email != nil {
		r.Email = *u.Email
	}
	if u.UrgencyLevel != nil {
		r.UrgencyLevel = *u.UrgencyLevel
	}
	if u.MedicalHistory != nil {
		r.MedicalHistory = *u.MedicalHistory
	}
	if u.DoctorInfo != nil {
		r.DoctorInfo = *u.DoctorInfo
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
}
