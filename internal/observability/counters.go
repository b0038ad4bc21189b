package observability

import (
	"fmt"
	"sync/atomic"
)

var (
	TicketListFetches   atomic.Int64
	TicketDetailFetches atomic.Int64
	CacheHits           atomic.Int64
	CacheMisses         atomic.Int64
	CommentsRemote      atomic.Int64
	CommentsLocal       atomic.Int64
	OfflineTickets      atomic.Int64
	AuthRejections      atomic.Int64
	ListRetries         atomic.Int64
)

// Snapshot returns a simple Prometheus-like exposition text for the domain
// counters, independent of the registry-backed request metrics.
func Snapshot() string {
	return fmt.Sprintf(`# Deskline metrics
deskline_ticket_list_fetches_total %d
deskline_ticket_detail_fetches_total %d
deskline_cache_hits_total %d
deskline_cache_misses_total %d
deskline_comments_remote_total %d
deskline_comments_local_total %d
deskline_offline_tickets_total %d
deskline_auth_rejections_total %d
deskline_list_retries_total %d
`,
		TicketListFetches.Load(),
		TicketDetailFetches.Load(),
		CacheHits.Load(),
		CacheMisses.Load(),
		CommentsRemote.Load(),
		CommentsLocal.Load(),
		OfflineTickets.Load(),
		AuthRejections.Load(),
		ListRetries.Load(),
	)
}
