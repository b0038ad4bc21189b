// Package desk composes the sync layer for the frontend: cache-first reads,
// optimistic writes, and the offline fallbacks. The CLI talks only to this
// facade.
package desk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/deskline/deskline/internal/api"
	"github.com/deskline/deskline/internal/auth"
	"github.com/deskline/deskline/internal/bus"
	"github.com/deskline/deskline/internal/cache"
	"github.com/deskline/deskline/internal/comments"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/offline"
	"github.com/deskline/deskline/internal/resolver"
	"github.com/deskline/deskline/internal/store"
)

// ErrStale marks a fetch superseded by a newer one; its result was
// discarded, not applied.
var ErrStale = errors.New("stale response discarded")

type Service struct {
	cfg  *common.Config
	st   *store.Store
	cm   *cache.Manager
	bs   *bus.Bus
	gate *auth.Gate
	api  *api.Client
	res  *resolver.Resolver
	sync *comments.Synchronizer
	clog *comments.Log
	off  *offline.Fallback

	// listGen guards the ticket list against out-of-order completions.
	listGen atomic.Uint64
}

func NewService(cfg *common.Config) (*Service, error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	bs := bus.New()
	gate := auth.NewGate(st, bs)
	cl, err := api.New(cfg, gate.Token)
	if err != nil {
		return nil, err
	}
	if cfg.UserName == "" {
		if u, ok := gate.User(); ok {
			cl.SetUser(u.Name)
		}
	}
	cm := cache.NewManager(st)
	clog := comments.NewLog(st)
	return &Service{
		cfg:  cfg,
		st:   st,
		cm:   cm,
		bs:   bs,
		gate: gate,
		api:  cl,
		res:  resolver.New(cm, cl),
		sync: comments.NewSynchronizer(cl, clog, cm),
		clog: clog,
		off:  offline.NewFallback(st),
	}, nil
}

// Accessors for components the CLI needs directly.
func (s *Service) Gate() *auth.Gate      { return s.gate }
func (s *Service) Bus() *bus.Bus         { return s.bs }
func (s *Service) Store() *store.Store   { return s.st }
func (s *Service) Cache() *cache.Manager { return s.cm }

// Login establishes a session and remembers the profile.
func (s *Service) Login(ctx context.Context, username, password string) error {
	u, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.api.SetUser(u.Name)
	return s.gate.Establish(u)
}

// Logout posts the backend logout best-effort and always clears the local
// session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil && common.Logger != nil {
		common.Logger.Warn("remote logout failed", zap.Error(err))
	}
	return s.gate.Clear()
}

// Tickets returns one listing page, cache-first, merged with the offline
// tickets. A page different from the cached one invalidates the list cache
// before fetching. The cache holds a common.TicketPage, the shape the
// resolver's cached-list scan reads too.
func (s *Service) Tickets(ctx context.Context, page, perPage int, force bool) ([]common.Ticket, int, error) {
	var cached common.TicketPage
	if !force && s.cm.Get(cache.TicketList, "", &cached) {
		if cached.Page == page && cached.PerPage == perPage {
			return s.off.Merge(cached.Tickets), cached.Total, nil
		}
		_ = s.cm.Invalidate(cache.TicketList, "")
	}

	gen := s.listGen.Add(1)
	tickets, total, err := s.api.ListTickets(ctx, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if s.listGen.Load() != gen {
		return nil, 0, ErrStale
	}
	_ = s.cm.Put(cache.TicketList, "", common.TicketPage{Page: page, PerPage: perPage, Tickets: tickets, Total: total})
	return s.off.Merge(tickets), total, nil
}

// detailPayload is what the per-ticket detail cache holds.
type detailPayload struct {
	Ticket   common.Ticket    `json:"ticket"`
	Comments []common.Comment `json:"comments"`
}

// Ticket returns one ticket with its thread: server comments first, then
// the local log. Navigating to a different ticket clears the previous
// ticket's detail cache.
func (s *Service) Ticket(ctx context.Context, display string) (common.Ticket, []common.Comment, resolver.Resolution, error) {
	rs := s.res.Resolve(ctx, display)
	s.navigateTo(rs.ID)

	if strings.HasPrefix(rs.ID, common.OfflineIDPrefix) {
		for _, t := range s.off.List() {
			if t.ID == rs.ID {
				return t, s.clog.For(rs.ID), rs, nil
			}
		}
		return common.Ticket{}, nil, rs, fmt.Errorf("offline ticket %s: %w", rs.ID, common.ErrNotFound)
	}

	var cached detailPayload
	if s.cm.Get(cache.TicketDetail, rs.ID, &cached) {
		return cached.Ticket, append(cached.Comments, s.clog.For(rs.ID)...), rs, nil
	}
	t, notes, err := s.api.TicketDetail(ctx, rs.ID)
	if err != nil {
		return common.Ticket{}, nil, rs, err
	}
	_ = s.cm.Put(cache.TicketDetail, rs.ID, detailPayload{Ticket: t, Comments: notes})
	return t, append(notes, s.clog.For(rs.ID)...), rs, nil
}

// navigateTo records the current ticket and invalidates the previous one's
// detail cache.
func (s *Service) navigateTo(id string) {
	prev, err := s.st.Get(store.KeyCurrentTicketID)
	if err == nil && prev != "" && prev != id {
		_ = s.cm.Invalidate(cache.TicketDetail, prev)
	}
	_ = s.st.Set(store.KeyCurrentTicketID, id)
}

// Teardown clears the current ticket's detail cache, mirroring component
// unmount in the original UI.
func (s *Service) Teardown() {
	if id, err := s.st.Get(store.KeyCurrentTicketID); err == nil && id != "" {
		_ = s.cm.Invalidate(cache.TicketDetail, id)
		_ = s.st.Delete(store.KeyCurrentTicketID)
	}
}

// Comment resolves display and submits through the synchronizer.
func (s *Service) Comment(ctx context.Context, display, text string, uploads []api.Upload) (comments.Result, error) {
	rs := s.res.Resolve(ctx, display)
	return s.sync.Submit(ctx, rs.ID, text, uploads)
}

// Create posts a new ticket. An auth-rejected create, or one attempted with
// no connectivity at all, degrades to a locally stored ticket and still
// reports success; other failures surface.
func (s *Service) Create(ctx context.Context, title, desc, priority string) (common.Ticket, bool, error) {
	if strings.TrimSpace(title) == "" {
		return common.Ticket{}, false, fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	requester := s.cfg.UserName
	if u, ok := s.gate.User(); ok && requester == "" {
		requester = u.Name
	}

	if !s.api.Online(ctx) {
		t, err := s.off.CreateLocal(title, desc, priority, requester)
		if err != nil {
			return t, true, err
		}
		s.rememberPriority(t.ID, priority)
		return t, true, nil
	}

	t, err := s.api.CreateTicket(ctx, title, desc, priority)
	if err != nil {
		if errors.Is(err, common.ErrAuthRejected) {
			lt, lerr := s.off.CreateLocal(title, desc, priority, requester)
			if lerr != nil {
				return lt, true, lerr
			}
			s.rememberPriority(lt.ID, priority)
			return lt, true, nil
		}
		return common.Ticket{}, false, err
	}
	_ = s.cm.Invalidate(cache.TicketList, "")
	s.rememberPriority(t.ID, priority)
	return t, false, nil
}

// Reconcile drops offline tickets the server now carries.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	tickets, _, err := s.api.ListTickets(ctx, 1, 500)
	if err != nil {
		return 0, err
	}
	return s.off.Reconcile(tickets)
}

// StatusTaxonomy returns the status taxonomy, cache-first, falling back to
// the built-in defaults when the fetch fails for any reason.
func (s *Service) StatusTaxonomy(ctx context.Context) []common.Status {
	var cached []common.Status
	if s.cm.Get(cache.Statuses, "", &cached) {
		return cached
	}
	out, err := s.api.Statuses(ctx)
	if err != nil || len(out) == 0 {
		return common.DefaultStatuses
	}
	_ = s.cm.Put(cache.Statuses, "", out)
	return out
}

// PriorityTaxonomy mirrors StatusTaxonomy.
func (s *Service) PriorityTaxonomy(ctx context.Context) []common.Priority {
	var cached []common.Priority
	if s.cm.Get(cache.Priorities, "", &cached) {
		return cached
	}
	out, err := s.api.Priorities(ctx)
	if err != nil || len(out) == 0 {
		return common.DefaultPriorities
	}
	_ = s.cm.Put(cache.Priorities, "", out)
	return out
}

func (s *Service) rememberPriority(ticketID, label string) {
	if label == "" {
		return
	}
	m := make(map[string]string)
	if err := s.st.GetJSON(store.KeyTicketPriorities, &m); err != nil && !errors.Is(err, store.ErrNoKey) {
		m = make(map[string]string)
	}
	m[ticketID] = label
	_ = s.st.SetJSON(store.KeyTicketPriorities, m)
}

// PriorityFor returns the remembered priority label for a ticket, if any.
func (s *Service) PriorityFor(ticketID string) (string, bool) {
	m := make(map[string]string)
	if err := s.st.GetJSON(store.KeyTicketPriorities, &m); err != nil {
		return "", false
	}
	v, ok := m[ticketID]
	return v, ok
}
