package desk

// End-to-end behavior of the sync layer against a live stub backend.

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deskline/deskline/internal/cache"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/comments"
	"github.com/deskline/deskline/internal/stub"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitReady(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := http.Get(base + "/health"); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("stub not ready at %s", base)
}

func startStub(t *testing.T) (base string, stop func()) {
	t.Helper()
	t.Setenv("PROM_DISABLE", "1")
	addr := freeAddr(t)
	h := stub.BuildServer(&common.Config{HTTPAddr: addr})
	go h.Spin()
	base = "http://" + addr
	waitReady(t, base)
	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		h.Shutdown(ctx)
	}
	t.Cleanup(stop)
	return base, stop
}

func newService(t *testing.T, base, dataDir string) *Service {
	t.Helper()
	cfg := &common.Config{
		BaseURL:        base,
		DataDir:        dataDir,
		UserName:       "pat",
		RequestTimeout: 3 * time.Second,
		ListRetries:    1,
		PollInterval:   50 * time.Millisecond,
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestOfflineTicketFallbackOnAuthRejection(t *testing.T) {
	base, _ := startStub(t)
	svc := newService(t, base, t.TempDir())

	// a stale session: flag set, token the backend no longer accepts
	if err := svc.Gate().Establish(common.User{Name: "pat", Token: "stale-token"}); err != nil {
		t.Fatalf("establish: %v", err)
	}

	tk, offline, err := svc.Create(context.Background(), "Printer down", "no ink", "High")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !offline || !strings.HasPrefix(tk.ID, common.OfflineIDPrefix) {
		t.Fatalf("expected offline ticket, got %#v", tk)
	}
	if tk.Status.Tag != "Created" || tk.Priority.Tag != "High" {
		t.Fatalf("unexpected shape %#v", tk)
	}

	tickets, _, err := svc.Tickets(context.Background(), 1, 10, false)
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}
	count := 0
	for _, x := range tickets {
		if x.ID == tk.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("offline ticket appeared %d times in merged list", count)
	}

	// the priority choice was remembered
	if p, ok := svc.PriorityFor(tk.ID); !ok || p != "High" {
		t.Fatalf("priority not remembered: %q %v", p, ok)
	}
}

func TestCreateOfflineWhenUnreachable(t *testing.T) {
	svc := newService(t, "http://127.0.0.1:1", t.TempDir())
	if err := svc.Gate().Establish(common.User{Name: "pat", Token: "tok"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	tk, offline, err := svc.Create(context.Background(), "No network", "", "Low")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !offline || !tk.Offline() {
		t.Fatalf("expected offline ticket, got %#v", tk)
	}
}

func TestCreateValidation(t *testing.T) {
	base, _ := startStub(t)
	svc := newService(t, base, t.TempDir())
	_, _, err := svc.Create(context.Background(), "   ", "", "Low")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestOfflineCommentRoundTrip(t *testing.T) {
	base, _ := startStub(t)
	dataDir := t.TempDir()

	svc := newService(t, base, dataDir)
	ctx := context.Background()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	created, offline, err := svc.Create(ctx, "Printer down", "no ink", "High")
	if err != nil || offline {
		t.Fatalf("create: %v offline=%v", err, offline)
	}

	// same local state, unreachable backend: the comment stays local
	dead := newService(t, "http://127.0.0.1:1", dataDir)
	res, err := dead.Comment(ctx, created.ID, "written while offline", nil)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if !res.AppliedLocally || res.PersistedRemotely {
		t.Fatalf("unexpected result %#v", res)
	}

	// a later session must see the logged comment unchanged
	later := newService(t, base, dataDir)
	_, thread, _, err := later.Ticket(ctx, created.ID)
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	found := false
	for _, c := range thread {
		if c.ID == res.Comment.ID {
			found = true
			if c.Message != "written while offline" || c.CreatedAt != res.Comment.CreatedAt || c.Author != comments.LocalAuthor {
				t.Fatalf("logged comment mutated: %#v", c)
			}
		}
	}
	if !found {
		t.Fatalf("logged comment missing from thread %#v", thread)
	}
}

func TestListCacheServesAfterBackendStops(t *testing.T) {
	base, stop := startStub(t)
	svc := newService(t, base, t.TempDir())
	ctx := context.Background()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Create(ctx, "Cached one", "", "Low"); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _, err := svc.Tickets(ctx, 1, 10, true)
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}
	stop()

	// same page: served from cache despite the dead backend
	again, _, err := svc.Tickets(ctx, 1, 10, false)
	if err != nil {
		t.Fatalf("cached tickets: %v", err)
	}
	if len(again) != len(first) {
		t.Fatalf("cache mismatch: %d vs %d", len(again), len(first))
	}

	// page change invalidates the cache and must now fail
	if _, _, err := svc.Tickets(ctx, 2, 10, false); err == nil {
		t.Fatal("expected fetch error after page change with dead backend")
	}
}

func TestNavigationInvalidatesPreviousDetail(t *testing.T) {
	base, _ := startStub(t)
	svc := newService(t, base, t.TempDir())
	ctx := context.Background()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	a, _, err := svc.Create(ctx, "First", "", "Low")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _, err := svc.Create(ctx, "Second", "", "Low")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, _, err := svc.Ticket(ctx, a.ID); err != nil {
		t.Fatalf("ticket a: %v", err)
	}
	var payload struct{}
	if !svc.Cache().Get(cache.TicketDetail, a.ID, &payload) {
		t.Fatal("detail a not cached")
	}

	if _, _, _, err := svc.Ticket(ctx, b.ID); err != nil {
		t.Fatalf("ticket b: %v", err)
	}
	if svc.Cache().Get(cache.TicketDetail, a.ID, &payload) {
		t.Fatal("previous detail cache not invalidated on navigation")
	}
	if !svc.Cache().Get(cache.TicketDetail, b.ID, &payload) {
		t.Fatal("current detail not cached")
	}

	svc.Teardown()
	if svc.Cache().Get(cache.TicketDetail, b.ID, &payload) {
		t.Fatal("teardown did not clear current detail cache")
	}
}

func TestResolverThroughService(t *testing.T) {
	base, _ := startStub(t)
	svc := newService(t, base, t.TempDir())
	ctx := context.Background()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	created, _, err := svc.Create(ctx, "Resolvable", "", "Low")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tk, _, rs, err := svc.Ticket(ctx, created.TicketNumber)
	if err != nil {
		t.Fatalf("ticket by number: %v", err)
	}
	if !rs.Resolved || tk.ID != created.ID {
		t.Fatalf("resolution failed: %#v ticket %#v", rs, tk)
	}
}

func TestResolverReadsListCacheWrittenByService(t *testing.T) {
	base, stop := startStub(t)
	svc := newService(t, base, t.TempDir())
	ctx := context.Background()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	created, _, err := svc.Create(ctx, "Cache resolvable", "", "Low")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.Tickets(ctx, 1, 10, true); err != nil {
		t.Fatalf("tickets: %v", err)
	}
	stop()

	// with the backend dead the only way to a resolved ID is the list cache
	// the Tickets call above wrote
	_, _, rs, _ := svc.Ticket(ctx, created.TicketNumber)
	if !rs.Resolved || rs.ID != created.ID {
		t.Fatalf("cached-list resolution failed: %#v want id %q", rs, created.ID)
	}
}

func TestOfflineTicketViewableByID(t *testing.T) {
	svc := newService(t, "http://127.0.0.1:1", t.TempDir())
	ctx := context.Background()
	if err := svc.Gate().Establish(common.User{Name: "pat", Token: "tok"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	created, offline, err := svc.Create(ctx, "Local only", "created offline", "Low")
	if err != nil || !offline {
		t.Fatalf("create: %v offline=%v", err, offline)
	}

	tk, _, rs, err := svc.Ticket(ctx, created.ID)
	if err != nil {
		t.Fatalf("ticket by offline id: %v", err)
	}
	if rs.ID != created.ID || !rs.Resolved {
		t.Fatalf("offline id mangled by resolution: %#v", rs)
	}
	if tk.ID != created.ID || tk.Title != "Local only" {
		t.Fatalf("wrong ticket served: %#v", tk)
	}

	// a failed comment lands in the thread under the same ID
	res, err := svc.Comment(ctx, created.ID, "still offline", nil)
	if err != nil || !res.AppliedLocally {
		t.Fatalf("comment: %v %#v", err, res)
	}
	_, thread, _, err := svc.Ticket(ctx, created.ID)
	if err != nil {
		t.Fatalf("ticket after comment: %v", err)
	}
	found := false
	for _, c := range thread {
		if c.ID == res.Comment.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("local comment missing from offline thread %#v", thread)
	}
}

func TestTaxonomyFallsBackToDefaults(t *testing.T) {
	svc := newService(t, "http://127.0.0.1:1", t.TempDir())
	ctx := context.Background()
	sts := svc.StatusTaxonomy(ctx)
	if len(sts) == 0 || sts[0].Tag != common.DefaultStatuses[0].Tag {
		t.Fatalf("expected default statuses, got %#v", sts)
	}
	prs := svc.PriorityTaxonomy(ctx)
	if len(prs) != len(common.DefaultPriorities) {
		t.Fatalf("expected default priorities, got %#v", prs)
	}
}

func TestWatchDeliversUpdates(t *testing.T) {
	base, _ := startStub(t)
	svc := newService(t, base, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Login(ctx, "pat", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	updates := make(chan int, 16)
	go func() {
		_ = svc.Watch(ctx, 1, 10, func(tickets []common.Ticket, total int) {
			updates <- total
		})
	}()
	select {
	case <-updates:
	case <-ctx.Done():
		t.Fatal("no update before timeout")
	}
	cancel()
}
