package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/bus"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/store"
)

func newGate(t *testing.T) (*Gate, *store.Store, *bus.Bus) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	bs := bus.New()
	return NewGate(st, bs), st, bs
}

func TestFreshStoreNotAuthenticated(t *testing.T) {
	g, _, _ := newGate(t)
	require.False(t, g.IsAuthenticated())
	require.Empty(t, g.Token())
}

func TestEstablishAndToken(t *testing.T) {
	g, _, bs := newGate(t)
	authFired := 0
	bs.Subscribe(bus.AuthChange, func() { authFired++ })

	require.NoError(t, g.Establish(common.User{Name: "pat", Token: "tok-9"}))
	require.True(t, g.IsAuthenticated())
	require.Equal(t, "tok-9", g.Token())
	require.Equal(t, 1, authFired)

	u, ok := g.User()
	require.True(t, ok)
	require.Equal(t, "pat", u.Name)
}

func TestFallbackTokenWhenFlagSetButTokenGone(t *testing.T) {
	g, st, _ := newGate(t)
	require.NoError(t, g.Establish(common.User{Name: "pat", Token: "tok-9"}))
	require.NoError(t, st.Delete(store.KeyAuthToken))

	// flag alone keeps the session usable via the fallback token
	require.True(t, g.IsAuthenticated())
	require.Equal(t, FallbackToken, g.Token())
}

func TestClearBroadcastsAndDropsEverything(t *testing.T) {
	g, st, bs := newGate(t)
	require.NoError(t, g.Establish(common.User{Name: "pat", Token: "tok-9"}))

	fired := false
	bs.Subscribe(bus.AuthChange, func() { fired = true })
	require.NoError(t, g.Clear())
	require.True(t, fired)
	require.False(t, g.IsAuthenticated())

	for _, key := range []string{store.KeyIsAuthenticated, store.KeyAuthToken, store.KeyUserData} {
		_, err := st.Get(key)
		require.ErrorIs(t, err, store.ErrNoKey, key)
	}
}
