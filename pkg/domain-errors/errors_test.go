package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("HasCode finds wrapped coded errors", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", New(CodeWriteReverted, "already registered"))
		assert.True(t, HasCode(err, CodeWriteReverted))
		assert.False(t, HasCode(err, CodeWriteRejected))
		assert.Equal(t, "already registered", Reason(err))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.False(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("Wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(cause, CodeNetwork, "ledger unreachable")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeNetwork, CodeOf(err))
		assert.Contains(t, err.Error(), "network_error")
	})
}
