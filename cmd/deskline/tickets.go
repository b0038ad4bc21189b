package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/desk"
)

func runTickets(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("tickets", flag.ContinueOnError)
	page := fs.IntP("page", "p", 1, "listing page")
	perPage := fs.IntP("per-page", "n", 10, "tickets per page")
	status := fs.StringP("status", "s", "", "filter by status tag")
	force := fs.BoolP("refresh", "r", false, "bypass the list cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAuth(svc); err != nil {
		return err
	}
	tickets, total, err := svc.Tickets(ctx, *page, *perPage, *force)
	if err != nil {
		return err
	}
	printTickets(tickets, *status)
	fmt.Printf("\npage %d, %d ticket(s) on server\n", *page, total)
	return nil
}

func runWatch(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	page := fs.IntP("page", "p", 1, "listing page")
	perPage := fs.IntP("per-page", "n", 10, "tickets per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAuth(svc); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "watching; ctrl-c to stop")
	return svc.Watch(ctx, *page, *perPage, func(tickets []common.Ticket, total int) {
		fmt.Printf("--- %s (%d total)\n", time.Now().Format(time.TimeOnly), total)
		printTickets(tickets, "")
	})
}

func printTickets(tickets []common.Ticket, statusFilter string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tTITLE\tSTATUS\tPRIORITY\tREQUESTER")
	for _, t := range tickets {
		if statusFilter != "" && t.Status.Tag != statusFilter {
			continue
		}
		num := t.TicketNumber
		if num == "" {
			num = t.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", num, t.Title, t.Status.Tag, t.Priority.Tag, t.Requester)
	}
	w.Flush()
}
