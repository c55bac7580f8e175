package handler

import (
	"strings"
	"time"

	"organchain/internal/models"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
)

// CreateDonorRequest is the POST /api/donors body.
type CreateDonorRequest struct {
	WalletAddress    string        `json:"walletAddress"`
	Name             string        `json:"name"`
	Age              int           `json:"age"`
	BloodType        string        `json:"bloodType"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	Organs           []string      `json:"organs"`
	MedicalHistory   string        `json:"medicalHistory"`
	EmergencyContact string        `json:"emergencyContact"`
	Status           models.Status `json:"status"`
	CreatedAt        *time.Time    `json:"createdAt,omitempty"`
}

func (r *CreateDonorRequest) ToProfile() (*models.Profile, error) {
	addr, err := domain.ParseAddress(r.WalletAddress)
	if err != nil {
		return nil, err
	}
	bt, err := domain.ParseBloodType(r.BloodType)
	if err != nil {
		return nil, err
	}
	organs, err := domain.ParseOrgans(r.Organs)
	if err != nil {
		return nil, err
	}
	p := &models.Profile{
		WalletAddress:    addr,
		Name:             r.Name,
		Age:              r.Age,
		BloodType:        bt,
		Email:            r.Email,
		Phone:            strings.TrimSpace(r.Phone),
		Organs:           organs,
		MedicalHistory:   r.MedicalHistory,
		EmergencyContact: r.EmergencyContact,
		Status:           r.Status,
	}
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	return p, nil
}

// normalizeProfileUpdate canonicalises enumerated fields so that "o+" and
// "Kidney" are accepted as they are on create.
func normalizeProfileUpdate(u *models.ProfileUpdate) error {
	if u.BloodType != nil {
		bt, err := domain.ParseBloodType(u.BloodType.String())
		if err != nil {
			return err
		}
		u.BloodType = &bt
	}
	if u.Organs != nil {
		organs, err := domain.ParseOrgans(domain.OrganStrings(u.Organs))
		if err != nil {
			return err
		}
		u.Organs = organs
	}
	return nil
}

// CreateRecipientRequest is the POST /api/recipients body.
type CreateRecipientRequest struct {
	WalletAddress  string                 `json:"walletAddress"`
	Name           string                 `json:"name"`
	Age            int                    `json:"age"`
	BloodType      string                 `json:"bloodType"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone"`
	OrganNeeded    string                 `json:"organNeeded"`
	UrgencyLevel   int                    `json:"urgencyLevel"`
	MedicalHistory string                 `json:"medicalHistory"`
	DoctorInfo     string                 `json:"doctorInfo"`
	Status         models.RecipientStatus `json:"status"`
}

func (r *CreateRecipientRequest) ToRecipient() (*models.Recipient, error) {
	addr, err := domain.ParseAddress(r.WalletAddress)
	if err != nil {
		return nil, err
	}
	bt, err := domain.ParseBloodType(r.BloodType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.OrganNeeded) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "organNeeded is required")
	}
	return &models.Recipient{
		WalletAddress:  addr,
		Name:           r.Name,
		Age:            r.Age,
		BloodType:      bt,
		Email:          r.Email,
		Phone:          strings.TrimSpace(r.Phone),
		OrganNeeded:    domain.Organ(r.OrganNeeded),
		UrgencyLevel:   r.UrgencyLevel,
		MedicalHistory: r.MedicalHistory,
		DoctorInfo:     r.DoctorInfo,
		Status:         r.Status,
	}, nil
}
