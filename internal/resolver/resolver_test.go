package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deskline/deskline/internal/cache"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/store"
)

type fakeLister struct {
	tickets []common.Ticket
	err     error
	calls   int
}

func (f *fakeLister) ListTickets(_ context.Context, _, _ int) ([]common.Ticket, int, error) {
	f.calls++
	return f.tickets, len(f.tickets), f.err
}

func newCache(t *testing.T) *cache.Manager {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return cache.NewManager(st)
}

func TestNumericPassthroughSkipsNetwork(t *testing.T) {
	lister := &fakeLister{err: errors.New("must not be called")}
	r := New(newCache(t), lister)
	rs := r.Resolve(context.Background(), "12345")
	require.Equal(t, Resolution{ID: "12345", Resolved: true}, rs)
	require.Zero(t, lister.calls)
}

func TestCachedListHitSkipsFetch(t *testing.T) {
	cm := newCache(t)
	require.NoError(t, cm.Put(cache.TicketList, "", common.TicketPage{
		Page:    1,
		PerPage: 10,
		Tickets: []common.Ticket{{ID: "7", TicketNumber: "TC-7"}},
		Total:   1,
	}))
	lister := &fakeLister{err: errors.New("must not be called")}
	r := New(cm, lister)

	rs := r.Resolve(context.Background(), "TC-7")
	require.Equal(t, Resolution{ID: "7", Resolved: true}, rs)
	require.Zero(t, lister.calls)
}

func TestCacheMatchIsCaseInsensitive(t *testing.T) {
	cm := newCache(t)
	require.NoError(t, cm.Put(cache.TicketList, "", common.TicketPage{
		Tickets: []common.Ticket{{ID: "7", TicketNumber: "TC-7"}},
	}))
	r := New(cm, &fakeLister{})
	rs := r.Resolve(context.Background(), "tc-7")
	require.True(t, rs.Resolved)
	require.Equal(t, "7", rs.ID)
}

func TestOfflineIDPassesThroughUntouched(t *testing.T) {
	lister := &fakeLister{err: errors.New("must not be called")}
	r := New(newCache(t), lister)

	rs := r.Resolve(context.Background(), "OFFLINE-1756380000000")
	require.Equal(t, Resolution{ID: "OFFLINE-1756380000000", Resolved: true}, rs)
	require.Zero(t, lister.calls)
}

func TestListingFallbackScansBothFields(t *testing.T) {
	lister := &fakeLister{tickets: []common.Ticket{
		{ID: "31", TicketNumber: "TC-31"},
		{ID: "64", TicketNumber: "HD-64"},
	}}
	r := New(newCache(t), lister)

	rs := r.Resolve(context.Background(), "HD-64")
	require.Equal(t, Resolution{ID: "64", Resolved: true}, rs)
	require.Equal(t, 1, lister.calls)
}

func TestDigitExtractionWhenUnresolved(t *testing.T) {
	// no cache, backend list has no matching ticket
	lister := &fakeLister{tickets: []common.Ticket{{ID: "1", TicketNumber: "TC-1"}}}
	r := New(newCache(t), lister)

	rs := r.Resolve(context.Background(), "TC-42")
	require.Equal(t, Resolution{ID: "42", Resolved: false}, rs)
}

func TestNoDigitsReturnsInputUnresolved(t *testing.T) {
	r := New(newCache(t), &fakeLister{})
	rs := r.Resolve(context.Background(), "not-a-ticket")
	require.Equal(t, Resolution{ID: "not-a-ticket", Resolved: false}, rs)
}

func TestListerErrorFallsThroughToDigits(t *testing.T) {
	lister := &fakeLister{err: errors.New("network down")}
	r := New(newCache(t), lister)
	rs := r.Resolve(context.Background(), "TC-9")
	require.Equal(t, Resolution{ID: "9", Resolved: false}, rs)
}
