package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organchain/pkg/domain"
)

func TestInMemoryJournal(t *testing.T) {
	ctx := context.Background()
	j := NewInMemoryJournal()
	addr := domain.MustParseAddress("0xab00000000000000000000000000000000000012")
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, Entry{TxID: "tx-2", Op: "revoke_donation", Identity: addr, SubmittedAt: base.Add(time.Minute)}))
	require.NoError(t, j.Record(ctx, Entry{TxID: "tx-1", Op: "register_donor", Identity: addr, SubmittedAt: base}))

	entries, err := j.List(ctx, addr)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "tx-1", entries[0].TxID)

	require.NoError(t, j.Clear(ctx, addr, "tx-1"))
	require.NoError(t, j.Clear(ctx, addr, "tx-unknown"))
	entries, err = j.List(ctx, addr)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tx-2", entries[0].TxID)

	other, err := j.List(ctx, domain.MustParseAddress("0xcd00000000000000000000000000000000000034"))
	require.NoError(t, err)
	assert.Empty(t, other)
}
