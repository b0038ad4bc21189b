// Package resolver maps a display identifier (the alphanumeric ticket
// number shown in the UI) to the backend's numeric ticket id.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/deskline/deskline/internal/cache"
	"github.com/deskline/deskline/internal/common"
)

// listPageSize is deliberately large: the listing fallback wants the whole
// ticket population in one page.
const listPageSize = 500

var (
	numericRe  = regexp.MustCompile(`^\d+$`)
	digitRunRe = regexp.MustCompile(`\d+`)
)

// Lister is the slice of the API client the resolver needs.
type Lister interface {
	ListTickets(ctx context.Context, page, perPage int) ([]common.Ticket, int, error)
}

// Resolution is the typed outcome. When Resolved is false, ID is a
// best-effort guess (extracted digits, or the input unchanged); callers
// decide whether to proceed and let the next backend call fail, or stop.
type Resolution struct {
	ID       string
	Resolved bool
}

type Resolver struct {
	cm     *cache.Manager
	lister Lister
}

func New(cm *cache.Manager, lister Lister) *Resolver {
	return &Resolver{cm: cm, lister: lister}
}

// Resolve runs the lookup chain, short-circuiting on first success:
// offline and numeric passthrough, cached-list scan, full-list fetch, digit
// extraction. It never returns an error; an unresolvable input comes back
// as-is with Resolved=false.
func (r *Resolver) Resolve(ctx context.Context, display string) Resolution {
	display = strings.TrimSpace(display)
	// Offline IDs are already canonical; digit extraction would mangle the
	// OFFLINE-<millis> form into a bare timestamp.
	if strings.HasPrefix(display, common.OfflineIDPrefix) {
		return Resolution{ID: display, Resolved: true}
	}
	if numericRe.MatchString(display) {
		return Resolution{ID: display, Resolved: true}
	}

	var page common.TicketPage
	if r.cm.Get(cache.TicketList, "", &page) {
		if id, ok := scan(page.Tickets, display); ok {
			return Resolution{ID: id, Resolved: true}
		}
	}

	if r.lister != nil {
		if tickets, _, err := r.lister.ListTickets(ctx, 1, listPageSize); err == nil {
			if id, ok := scan(tickets, display); ok {
				return Resolution{ID: id, Resolved: true}
			}
		}
	}

	if digits := digitRunRe.FindString(display); digits != "" {
		return Resolution{ID: digits, Resolved: false}
	}
	return Resolution{ID: display, Resolved: false}
}

// scan matches display against ticket_number and id, case-insensitively.
func scan(tickets []common.Ticket, display string) (string, bool) {
	for _, t := range tickets {
		if equalID(t.TicketNumber, display) || equalID(t.ID, display) {
			return t.ID, true
		}
	}
	return "", false
}

func equalID(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), b)
}
