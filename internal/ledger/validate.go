package ledger

import (
	"strings"

	"organchain/internal/models"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
)

// ValidateRegistration enforces the contract's input rules before anything
// is signed.
func ValidateRegistration(reg models.Registration) error {
	if strings.TrimSpace(reg.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if err := domain.ValidateAge(int(reg.Age)); err != nil {
		return err
	}
	if !reg.BloodType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid blood type: "+reg.BloodType.String())
	}
	if len(reg.Organs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one organ is required")
	}
	for _, o := range reg.Organs {
		if _, err := domain.ParseOrgan(string(o)); err != nil {
			return err
		}
	}
	return nil
}
