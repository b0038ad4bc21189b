// Package offline keeps tickets whose authenticated create call the backend
// rejected. The record lives only in the local store, shows up in merged
// listings, and is dropped only by an explicit reconcile.
package offline

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/observability"
	"github.com/deskline/deskline/internal/store"
)

// CreatedStatus is the fixed status of a locally created ticket.
var CreatedStatus = common.Status{Tag: "Created", Color: "#607d8b"}

type Fallback struct {
	st  *store.Store
	now func() time.Time
}

func NewFallback(st *store.Store) *Fallback {
	return &Fallback{st: st, now: time.Now}
}

// SetClock overrides the timestamp source. Test hook.
func (f *Fallback) SetClock(now func() time.Time) { f.now = now }

func (f *Fallback) load() []common.Ticket {
	var out []common.Ticket
	if err := f.st.GetJSON(store.KeyOfflineTickets, &out); err != nil && !errors.Is(err, store.ErrNoKey) {
		return nil
	}
	return out
}

// CreateLocal synthesizes an offline ticket from the rejected submission
// and appends it to the offline list. The caller reports success to the UI.
func (f *Fallback) CreateLocal(title, desc, priority, requester string) (common.Ticket, error) {
	now := f.now()
	t := common.Ticket{
		ID:        common.OfflineIDPrefix + strconv.FormatInt(now.UnixMilli(), 10),
		Title:     title,
		Desc:      desc,
		Requester: requester,
		Status:    CreatedStatus,
		Priority:  common.Priority{Tag: priority},
		CreatedAt: now.Unix(),
	}
	list := append(f.load(), t)
	if err := f.st.SetJSON(store.KeyOfflineTickets, list); err != nil {
		return t, err
	}
	observability.OfflineTickets.Add(1)
	return t, nil
}

// List returns the offline-created tickets, oldest first.
func (f *Fallback) List() []common.Ticket { return f.load() }

// Merge concatenates server tickets with the offline list. No
// de-duplication happens here; Reconcile is the explicit sync point.
func (f *Fallback) Merge(server []common.Ticket) []common.Ticket {
	off := f.load()
	if len(off) == 0 {
		return server
	}
	out := make([]common.Ticket, 0, len(server)+len(off))
	out = append(out, server...)
	out = append(out, off...)
	return out
}

// Reconcile drops offline tickets that the server now also carries, matched
// by title and requester. Returns how many were dropped.
func (f *Fallback) Reconcile(server []common.Ticket) (int, error) {
	off := f.load()
	if len(off) == 0 {
		return 0, nil
	}
	kept := off[:0]
	removed := 0
	for _, t := range off {
		if matchServer(server, t) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, f.st.SetJSON(store.KeyOfflineTickets, kept)
}

func matchServer(server []common.Ticket, local common.Ticket) bool {
	for _, s := range server {
		if strings.EqualFold(s.Title, local.Title) && strings.EqualFold(s.Requester, local.Requester) {
			return true
		}
	}
	return false
}
