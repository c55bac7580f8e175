package service

import (
	"net/mail"
	"strings"

	"organchain/internal/models"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
)

func validateProfile(p *models.Profile) error {
	if p.WalletAddress.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "walletAddress is required")
	}
	if err := validatePerson(p.Name, p.Age, p.BloodType, p.Email); err != nil {
		return err
	}
	if len(p.Organs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one organ is required")
	}
	organs, err := domain.ParseOrgans(domain.OrganStrings(p.Organs))
	if err != nil {
		return err
	}
	p.Organs = organs
	if !p.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status: "+string(p.Status))
	}
	return nil
}

func validateRecipient(r *models.Recipient) error {
	if r.WalletAddress.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "walletAddress is required")
	}
	if err := validatePerson(r.Name, r.Age, r.BloodType, r.Email); err != nil {
		return err
	}
	organ, err := domain.ParseOrgan(string(r.OrganNeeded))
	if err != nil {
		return err
	}
	r.OrganNeeded = organ
	if r.UrgencyLevel < models.MinUrgency || r.UrgencyLevel > models.MaxUrgency {
		return dErrors.New(dErrors.CodeValidation, "urgencyLevel must be between 1 and 10")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid status: "+string(r.Status))
	}
	return nil
}

func validatePerson(name string, age int, bt domain.BloodType, email string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := domain.ValidateAge(age); err != nil {
		return err
	}
	if !bt.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid blood type: "+bt.String())
	}
	if strings.TrimSpace(email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}
