package audit

import (
	"context"
	"time"

	"organchain/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers confirmed ledger writes: registration and
	// revocation of donation consent.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers identity changes and declined signatures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers degraded paths: profile sync failures, stale
	// result discards, load errors.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the donor controller to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	Identity  domain.Address
	Action    string
	// TxID is the ledger transaction the action submitted, when any.
	TxID    string
	Outcome string
	Reason  string
	// RequestID correlates the action with profile-store HTTP logs.
	RequestID string
}

type AuditEvent string

const (
	// Identity events
	EventWalletConnected   AuditEvent = "wallet_connected"
	EventIdentityChanged   AuditEvent = "identity_changed"
	EventIdentityCleared   AuditEvent = "identity_cleared"
	EventSignatureDeclined AuditEvent = "signature_declined"

	// Ledger events
	EventDonorRegistered   AuditEvent = "donor_registered"
	EventDonationRevoked   AuditEvent = "donation_revoked"
	EventLedgerWriteFailed AuditEvent = "ledger_write_failed"

	// Degraded paths
	EventProfileSyncFailed    AuditEvent = "profile_sync_failed"
	EventStaleResultDiscarded AuditEvent = "stale_result_discarded"
	EventDonorViewLoadFailed  AuditEvent = "donor_view_load_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDonorRegistered: CategoryCompliance,
	EventDonationRevoked: CategoryCompliance,

	EventIdentityChanged:   CategorySecurity,
	EventIdentityCleared:   CategorySecurity,
	EventSignatureDeclined: CategorySecurity,

	EventWalletConnected:      CategoryOperations,
	EventLedgerWriteFailed:    CategoryOperations,
	EventProfileSyncFailed:    CategoryOperations,
	EventStaleResultDiscarded: CategoryOperations,
	EventDonorViewLoadFailed:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
