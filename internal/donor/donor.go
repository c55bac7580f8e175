// Package donor sequences donor actions across the ledger and the profile
// store.
//
// The ledger is authoritative and written first; the profile store is
// written only after the ledger confirms, and its failures degrade an action
// to a warning. Every action returns exactly one Outcome. Results computed
// for an identity that is no longer current are discarded on completion.
package donor

import (
	"strings"

	"organchain/internal/models"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
)

type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateNoLedgerRecord State = "no_ledger_record"
	StateLoading        State = "loading"
	StateLoaded         State = "loaded"
	StateLoadError      State = "load_error"
	StateRegistering    State = "registering"
	StateRevoking       State = "revoking"
)

// busy reports whether an action owns the controller. Actions do not
// overlap.
func (s State) busy() bool {
	switch s {
	case StateConnecting, StateLoading, StateRegistering, StateRevoking:
		return true
	}
	return false
}

type Action string

const (
	ActionConnect        Action = "connect"
	ActionRestore        Action = "restore"
	ActionRefresh        Action = "refresh"
	ActionRegister       Action = "register"
	ActionRevoke         Action = "revoke"
	ActionIdentityChange Action = "identity_change"
)

type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeSuccessWithWarning OutcomeKind = "success_with_warning"
	OutcomeFailure            OutcomeKind = "failure"
	// OutcomeDiscarded means the identity changed while the action was in
	// flight; its result was not applied.
	OutcomeDiscarded OutcomeKind = "discarded"
)

// Outcome is the single result of an action. Err is set for failures and
// Warning for successes that degraded.
type Outcome struct {
	Action  Action
	Kind    OutcomeKind
	Err     error
	Warning error
	// TxID is the ledger transaction the action submitted, when any.
	TxID string
}

// Snapshot is a consistent copy of the controller's state.
type Snapshot struct {
	State    State
	Identity domain.Address
	View     *models.DonorView
	// Err is the error that put the controller in Disconnected or LoadError.
	Err error
	// Warning is set when the view was built from one store only.
	Warning error
}

// RegisterInput is the registration form. Organs and BloodType are parsed
// leniently: case and surrounding space are ignored.
type RegisterInput struct {
	FullName         string
	Age              int
	BloodType        string
	Organs           []string
	MedicalHistory   string
	Email            string
	Phone            string
	EmergencyContact string
}

// noHistory is recorded on the ledger when the form leaves history blank.
const noHistory = "None"

func (in RegisterInput) build() (models.Registration, *models.Profile, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return models.Registration{}, nil, dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if err := domain.ValidateAge(in.Age); err != nil {
		return models.Registration{}, nil, err
	}
	bloodType, err := domain.ParseBloodType(in.BloodType)
	if err != nil {
		return models.Registration{}, nil, err
	}
	organs, err := domain.ParseOrgans(in.Organs)
	if err != nil {
		return models.Registration{}, nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return models.Registration{}, nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	history := strings.TrimSpace(in.MedicalHistory)
	if history == "" {
		history = noHistory
	}

	reg := models.Registration{
		FullName:       name,
		Age:            uint8(in.Age),
		BloodType:      bloodType,
		Organs:         organs,
		MedicalHistory: history,
	}
	profile := &models.Profile{
		Name:             name,
		Age:              in.Age,
		BloodType:        bloodType,
		Email:            email,
		Phone:            strings.TrimSpace(in.Phone),
		Organs:           append([]domain.Organ(nil), organs...),
		MedicalHistory:   history,
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
		Status:           models.StatusActive,
	}
	return reg, profile, nil
}
