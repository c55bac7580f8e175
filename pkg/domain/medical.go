package domain

import (
	"slices"
	"strings"

	dErrors "organchain/pkg/domain-errors"
)

// BloodType is one of the eight canonical ABO/Rh types.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

var validBloodTypes = map[BloodType]bool{
	BloodTypeAPos: true, BloodTypeANeg: true,
	BloodTypeBPos: true, BloodTypeBNeg: true,
	BloodTypeABPos: true, BloodTypeABNeg: true,
	BloodTypeOPos: true, BloodTypeONeg: true,
}

// ParseBloodType validates a blood type, accepting lower-case input.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !validBloodTypes[bt] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid blood type: "+s)
	}
	return bt, nil
}

func (b BloodType) String() string { return string(b) }

// IsValid reports whether b is one of the canonical types.
func (b BloodType) IsValid() bool { return validBloodTypes[b] }

// Organ is a donatable organ.
type Organ string

const (
	OrganHeart    Organ = "heart"
	OrganKidney   Organ = "kidney"
	OrganLiver    Organ = "liver"
	OrganLungs    Organ = "lungs"
	OrganPancreas Organ = "pancreas"
	OrganCorneas  Organ = "corneas"
)

var validOrgans = map[Organ]bool{
	OrganHeart:    true,
	OrganKidney:   true,
	OrganLiver:    true,
	OrganLungs:    true,
	OrganPancreas: true,
	OrganCorneas:  true,
}

// ParseOrgan validates a single organ name.
func ParseOrgan(s string) (Organ, error) {
	o := Organ(strings.ToLower(strings.TrimSpace(s)))
	if !validOrgans[o] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid organ: "+s)
	}
	return o, nil
}

// ParseOrgans validates a non-empty organ set, dropping duplicates while
// preserving first-seen order.
func ParseOrgans(in []string) ([]Organ, error) {
	if len(in) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one organ is required")
	}
	out := make([]Organ, 0, len(in))
	for _, s := range in {
		o, err := ParseOrgan(s)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// OrganStrings converts an organ set to its wire form.
func OrganStrings(organs []Organ) []string {
	out := make([]string, len(organs))
	for i, o := range organs {
		out[i] = string(o)
	}
	return out
}

// MaxAge is the upper bound of the plausible age range.
const MaxAge = 150

// ValidateAge enforces the 0..MaxAge range.
func ValidateAge(age int) error {
	if age < 0 || age > MaxAge {
		return dErrors.New(dErrors.CodeValidation, "age must be between 0 and 150")
	}
	return nil
}
