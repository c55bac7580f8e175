// Package sentinel holds infrastructure facts that profile stores report and
// the service layer translates into coded domain errors.
//
//   - ErrNotFound: no record for the wallet address
//   - ErrAlreadyUsed: the wallet address already has a record
//
// Validation failures use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
)
