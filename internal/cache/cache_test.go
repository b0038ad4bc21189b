package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/store"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return NewManager(st)
}

func TestGetAbsentWithoutPut(t *testing.T) {
	m := newManager(t)
	var out []string
	require.False(t, m.Get(TicketList, "", &out))
}

func TestTTLBoundaries(t *testing.T) {
	m := newManager(t)
	base := time.Now()
	m.SetClock(func() time.Time { return base })
	require.NoError(t, m.Put(TicketList, "", []string{"a"}))

	var out []string
	// just under the 5 minute TTL: still live
	m.SetClock(func() time.Time { return base.Add(5*time.Minute - time.Millisecond) })
	require.True(t, m.Get(TicketList, "", &out))
	require.Equal(t, []string{"a"}, out)

	// exactly at the TTL: absent
	m.SetClock(func() time.Time { return base.Add(5 * time.Minute) })
	require.False(t, m.Get(TicketList, "", &out))
}

func TestDetailTTLAndParameterization(t *testing.T) {
	m := newManager(t)
	base := time.Now()
	m.SetClock(func() time.Time { return base })
	require.NoError(t, m.Put(TicketDetail, "7", "seven"))

	var out string
	require.True(t, m.Get(TicketDetail, "7", &out))
	require.Equal(t, "seven", out)
	// a different ticket's entry is independent
	require.False(t, m.Get(TicketDetail, "8", &out))

	m.SetClock(func() time.Time { return base.Add(2*time.Minute - time.Millisecond) })
	require.True(t, m.Get(TicketDetail, "7", &out))
	m.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	require.False(t, m.Get(TicketDetail, "7", &out))
}

func TestPutOverwritesAndRestamps(t *testing.T) {
	m := newManager(t)
	base := time.Now()
	m.SetClock(func() time.Time { return base })
	require.NoError(t, m.Put(Statuses, "", "old"))

	m.SetClock(func() time.Time { return base.Add(9 * time.Minute) })
	require.NoError(t, m.Put(Statuses, "", "new"))

	// the second Put restamped, so 9m + 9m59s later the entry is still live
	m.SetClock(func() time.Time { return base.Add(9*time.Minute + 10*time.Minute - time.Second) })
	var out string
	require.True(t, m.Get(Statuses, "", &out))
	require.Equal(t, "new", out)
}

func TestInvalidate(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Put(Priorities, "", "p"))
	var out string
	require.True(t, m.Get(Priorities, "", &out))
	require.NoError(t, m.Invalidate(Priorities, ""))
	require.False(t, m.Get(Priorities, "", &out))
}

func TestCategoriesDoNotCrossInvalidate(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Put(TicketList, "", "list"))
	require.NoError(t, m.Put(TicketDetail, "7", "detail"))
	require.NoError(t, m.Invalidate(TicketList, ""))

	var out string
	require.True(t, m.Get(TicketDetail, "7", &out))
}
