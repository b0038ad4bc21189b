// deskline is a terminal client for a helpdesk ticketing backend. All reads
// go through the local cache layer; writes degrade to local records when the
// backend rejects or is unreachable.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/desk"
	"github.com/deskline/deskline/internal/observability"
)

const usage = `usage: deskline <command> [flags]

commands:
  login      authenticate against the backend
  logout     clear the local session
  tickets    list tickets (paginated)
  show       show one ticket with its comment thread
  comment    add a comment to a ticket
  new        create a ticket
  watch      poll the ticket list and print changes
  reconcile  drop offline tickets the server now carries
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	common.InitDevLogger()
	shutdown, err := observability.InitTracing(common.ProjectName, common.Logger)
	if err == nil && shutdown != nil {
		defer shutdown(context.Background())
	}
	observability.RegisterCollectors(nil)
	if cfg.MetricsAddr != "" {
		observability.InitMetrics(common.ProjectName, cfg.MetricsAddr, common.Logger)
	}

	svc, err := desk.NewService(cfg)
	if err != nil {
		fatal(err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	ctx := context.Background()
	switch cmd {
	case "login":
		err = runLogin(ctx, svc, args)
	case "logout":
		err = runLogout(ctx, svc)
	case "tickets":
		err = runTickets(ctx, svc, args)
	case "show":
		err = runShow(ctx, svc, args)
	case "comment":
		err = runComment(ctx, svc, args)
	case "new":
		err = runNew(ctx, svc, args)
	case "watch":
		err = runWatch(ctx, svc, args)
	case "reconcile":
		err = runReconcile(ctx, svc)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "deskline:", err)
	os.Exit(1)
}

// requireAuth gates protected commands on the local session.
func requireAuth(svc *desk.Service) error {
	if !svc.Gate().IsAuthenticated() {
		return fmt.Errorf("not logged in; run `deskline login`")
	}
	return nil
}
