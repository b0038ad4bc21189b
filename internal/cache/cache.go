// Package cache layers TTL bookkeeping over the local store. Each category
// owns its key format and time-to-live; callers never touch raw key strings.
package cache

import (
	"errors"
	"strconv"
	"time"

	"github.com/deskline/deskline/internal/observability"
	"github.com/deskline/deskline/internal/store"
)

// Category binds a cache key pair to a TTL. Parameterized categories derive
// the pair from the param (ticket id); the rest ignore it.
type Category struct {
	Name     string
	TTL      time.Duration
	key      func(param string) string
	stampKey func(param string) string
}

func fixed(key, stamp string) (func(string) string, func(string) string) {
	return func(string) string { return key }, func(string) string { return stamp }
}

var (
	// TicketList holds the most recent ticket listing page.
	TicketList = Category{Name: "ticket-list", TTL: 5 * time.Minute}
	// TicketDetail is parameterized by ticket id.
	TicketDetail = Category{
		Name:     "ticket-detail",
		TTL:      2 * time.Minute,
		key:      store.TicketDetailKey,
		stampKey: store.TicketDetailStampKey,
	}
	// Statuses and Priorities hold the taxonomy listings.
	Statuses   = Category{Name: "statuses", TTL: 10 * time.Minute}
	Priorities = Category{Name: "priorities", TTL: 10 * time.Minute}
)

func init() {
	TicketList.key, TicketList.stampKey = fixed(store.KeyCachedTickets, store.KeyTicketsStamp)
	Statuses.key, Statuses.stampKey = fixed(store.KeyCachedStatuses, store.KeyStatusesStamp)
	Priorities.key, Priorities.stampKey = fixed(store.KeyCachedPriorities, store.KeyPrioritiesStamp)
}

// Manager reads and writes timestamped entries. Entries in different
// categories never cross-invalidate; staleness up to each TTL is tolerated.
type Manager struct {
	st  *store.Store
	now func() time.Time
}

func NewManager(st *store.Store) *Manager {
	return &Manager{st: st, now: time.Now}
}

// SetClock overrides the manager's notion of now. Test hook.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Get unmarshals the cached payload into out and reports whether a live
// entry existed. An entry whose age is >= the category TTL is absent.
func (m *Manager) Get(cat Category, param string, out any) bool {
	raw, err := m.st.Get(cat.stampKey(param))
	if err != nil {
		observability.CacheMisses.Add(1)
		return false
	}
	stamp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		observability.CacheMisses.Add(1)
		return false
	}
	age := m.now().UnixMilli() - stamp
	if age >= cat.TTL.Milliseconds() {
		observability.CacheMisses.Add(1)
		return false
	}
	if err := m.st.GetJSON(cat.key(param), out); err != nil {
		observability.CacheMisses.Add(1)
		return false
	}
	observability.CacheHits.Add(1)
	return true
}

// Put overwrites the entry unconditionally and stamps the current time.
func (m *Manager) Put(cat Category, param string, v any) error {
	if err := m.st.SetJSON(cat.key(param), v); err != nil {
		return err
	}
	return m.st.Set(cat.stampKey(param), strconv.FormatInt(m.now().UnixMilli(), 10))
}

// Invalidate drops the entry and its timestamp.
func (m *Manager) Invalidate(cat Category, param string) error {
	err1 := m.st.Delete(cat.key(param))
	err2 := m.st.Delete(cat.stampKey(param))
	return errors.Join(err1, err2)
}
