package callstatus

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb)
}

func TestSetAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "CA1", StatusEscalationRequested))

	st, err := store.Get(ctx, "CA1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "CA1", st.CallSID)
	assert.Equal(t, StatusEscalationRequested, st.Status)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestGetUnknownCall(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Get(context.Background(), "CA-missing")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "CA1", StatusActive))
	require.NoError(t, store.Set(ctx, "CA1", StatusFinished))

	st, err := store.Get(ctx, "CA1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, StatusFinished, st.Status)
}

func TestSetRequiresCallSID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Set(context.Background(), "", StatusActive))
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "CA1", StatusActive))
	require.NoError(t, store.Clear(ctx, "CA1"))

	st, err := store.Get(ctx, "CA1")
	require.NoError(t, err)
	assert.Nil(t, st)
}
