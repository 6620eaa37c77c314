package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContextStore(t *testing.T, opts ...ContextStoreOption) (*ContextStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewContextStore(client, nil, opts...), mr
}

func TestContextStore_GetEmpty(t *testing.T) {
	store, _ := newTestContextStore(t)

	got, err := store.Get(context.Background(), "store-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "store-1", got.StoreID)
	assert.Equal(t, "user-1", got.CustomerID)
	assert.Empty(t, got.Turns)
	assert.Empty(t, got.ChatHistory())
}

func TestContextStore_UpdateAppendsAndSetsTTL(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store, mr := newTestContextStore(t, WithContextClock(func() time.Time { return fixed }))
	ctx := context.Background()

	_, err := store.Update(ctx, "store-1", "user-1", "안녕하세요", "반갑습니다")
	require.NoError(t, err)

	got, err := store.Get(ctx, "store-1", "user-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, Turn{Role: ChatRoleUser, Content: "안녕하세요", Timestamp: fixed}, got.Turns[0])
	assert.Equal(t, ChatRoleAssistant, got.Turns[1].Role)
	assert.Equal(t, fixed, got.UpdatedAt)

	assert.True(t, mr.Exists("ctx:store-1:user-1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("ctx:store-1:user-1"))

	mr.FastForward(25 * time.Hour)
	got, err = store.Get(ctx, "store-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, got.Turns)
}

func TestContextStore_NeverExceedsTurnCap(t *testing.T) {
	store, _ := newTestContextStore(t)
	ctx := context.Background()

	for i := 0; i < 37; i++ {
		updated, err := store.Update(ctx, "s", "c", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(updated.Turns), MaxContextTurns)
	}

	got, err := store.Get(ctx, "s", "c")
	require.NoError(t, err)
	require.Len(t, got.Turns, MaxContextTurns)
	assert.Equal(t, "q27", got.Turns[0].Content)
	assert.Equal(t, "a36", got.Turns[MaxContextTurns-1].Content)
}

func TestContextStore_KeysAreScopedPerStoreAndCustomer(t *testing.T) {
	store, _ := newTestContextStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "store-a", "user", "q", "a")
	require.NoError(t, err)

	other, err := store.Get(ctx, "store-b", "user")
	require.NoError(t, err)
	assert.Empty(t, other.Turns)
}

func TestContextStore_Clear(t *testing.T) {
	store, mr := newTestContextStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "s", "c", "q", "a")
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx, "s", "c"))
	assert.False(t, mr.Exists("ctx:s:c"))
}

func TestContextStore_CorruptPayload(t *testing.T) {
	store, mr := newTestContextStore(t)
	require.NoError(t, mr.Set("ctx:s:c", "not json"))

	_, err := store.Get(context.Background(), "s", "c")
	assert.ErrorContains(t, err, "decode context")
}

func TestContextStore_Options(t *testing.T) {
	store, mr := newTestContextStore(t, WithMaxTurns(4), WithContextTTL(time.Hour), WithMaxTurns(100))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Update(ctx, "s", "c", "q", "a")
		require.NoError(t, err)
	}
	got, err := store.Get(ctx, "s", "c")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 4)
	assert.Equal(t, time.Hour, mr.TTL("ctx:s:c"))
}
