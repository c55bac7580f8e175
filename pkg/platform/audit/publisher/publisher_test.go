package publisher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"organchain/pkg/domain"
	audit "organchain/pkg/platform/audit"
	"organchain/pkg/platform/audit/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(n int) domain.Address {
	return domain.MustParseAddress(fmt.Sprintf("0x%040x", n))
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	addr := testAddress(1)
	err := pub.Emit(context.Background(), audit.Event{
		Identity: addr,
		Action:   string(audit.EventDonorRegistered),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDonorRegistered), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	addr := testAddress(2)
	err := pub.Emit(context.Background(), audit.Event{
		Identity: addr,
		Action:   string(audit.EventDonationRevoked),
	})
	require.NoError(t, err)
	pub.Close()

	events, err := pub.List(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDonationRevoked), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	addr := testAddress(3)
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Identity: addr,
			Action:   string(audit.EventProfileSyncFailed),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByIdentity(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	addr := testAddress(4)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				Identity: addr,
				Action:   string(audit.EventIdentityChanged),
			})
		}()
	}
	wg.Wait()
}

func TestPublisher_EmitAfterCloseWritesInline(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()

	addr := testAddress(5)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Identity: addr,
		Action:   string(audit.EventIdentityCleared),
	}))

	events, err := store.ListByIdentity(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_Timestamps(t *testing.T) {
	t.Run("sets missing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		addr := testAddress(6)

		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Identity: addr, Action: "x"}))
		after := time.Now()

		events, err := pub.List(context.Background(), addr)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		addr := testAddress(7)
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, pub.Emit(context.Background(), audit.Event{Identity: addr, Action: "x", Timestamp: custom}))

		events, err := pub.List(context.Background(), addr)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestPublisher_ContextCancellation(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Identity: testAddress(8), Action: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_SeparatesIdentities(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	a, b := testAddress(9), testAddress(10)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Identity: a, Action: string(audit.EventWalletConnected)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Identity: b, Action: string(audit.EventDonorRegistered)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Identity: a, Action: string(audit.EventDonorRegistered)}))

	eventsA, err := pub.List(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, eventsA, 2)
	assert.Equal(t, string(audit.EventWalletConnected), eventsA[0].Action)
	assert.Equal(t, string(audit.EventDonorRegistered), eventsA[1].Action)

	eventsB, err := pub.List(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, eventsB, 1)

	recent, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, b, recent[0].Identity)
}
