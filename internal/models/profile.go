package models

import (
	"time"

	"organchain/pkg/domain"
)

// Status is the activity status of a donor, shared by profile records and
// the merged view.
type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPending, StatusInactive:
		return true
	}
	return false
}

// Profile is the mutable off-chain donor document. It is advisory: nothing
// here overrides a ledger value.
type Profile struct {
	ID               string           `json:"id"`
	WalletAddress    domain.Address   `json:"walletAddress"`
	Name             string           `json:"name"`
	Age              int              `json:"age"`
	BloodType        domain.BloodType `json:"bloodType"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	Organs           []domain.Organ   `json:"organs"`
	MedicalHistory   string           `json:"medicalHistory,omitempty"`
	EmergencyContact string           `json:"emergencyContact,omitempty"`
	Status           Status           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name             *string           `json:"name,omitempty"`
	Age              *int              `json:"age,omitempty"`
	BloodType        *domain.BloodType `json:"bloodType,omitempty"`
	Email            *string           `json:"email,omitempty"`
	Phone            *string           `json:"phone,omitempty"`
	Organs           []domain.Organ    `json:"organs,omitempty"`
	MedicalHistory   *string           `json:"medicalHistory,omitempty"`
	EmergencyContact *string           `json:"emergencyContact,omitempty"`
	Status           *Status           `json:"status,omitempty"`
}

// StatusUpdate builds an update that only changes the status.
func StatusUpdate(s Status) ProfileUpdate {
	return ProfileUpdate{Status: &s}
}

// Apply copies the set fields of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.BloodType != nil {
		p.BloodType = *u.BloodType
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Organs != nil {
		p.Organs = append([]domain.Organ(nil), u.Organs...)
	}
	if u.MedicalHistory != nil {
		p.MedicalHistory = *u.MedicalHistory
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}
