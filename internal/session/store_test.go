package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStorePutRejectsDuplicate(t *testing.T) {
	store := NewStore()
	state := State{Mode: ModeTimed, StartedAt: time.Now(), Bet: 2}

	require.True(t, store.Put(1, 7, state))
	require.False(t, store.Put(1, 7, State{Mode: ModeUntimed}))

	got, ok := store.Get(1, 7)
	require.True(t, ok)
	require.Equal(t, ModeTimed, got.Mode)
	require.Equal(t, int64(2), got.Bet)
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store := NewStore()

	require.True(t, store.Put(1, 7, State{Mode: ModeUntimed}))
	require.True(t, store.Put(1, 8, State{Mode: ModeTimed}))
	require.True(t, store.Put(2, 7, State{Mode: ModeTimed}))
	require.Equal(t, 3, store.Len())
}

func TestStoreClearReturnsRemovedState(t *testing.T) {
	store := NewStore()
	opened := time.Now()
	store.Put(1, 7, State{Mode: ModeTimed, StartedAt: opened, Bet: 5})

	state, ok := store.Clear(1, 7)
	require.True(t, ok)
	require.Equal(t, int64(5), state.Bet)
	require.Equal(t, opened, state.StartedAt)

	_, ok = store.Get(1, 7)
	require.False(t, ok)

	_, ok = store.Clear(1, 7)
	require.False(t, ok)
}
