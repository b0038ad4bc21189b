package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/deskline/deskline/internal/desk"
)

func runShow(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: deskline show <ticket-number>")
	}
	if err := requireAuth(svc); err != nil {
		return err
	}
	defer svc.Teardown()

	t, thread, rs, err := svc.Ticket(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !rs.Resolved {
		fmt.Printf("note: %q did not resolve to a known ticket; best-effort id %s\n", fs.Arg(0), rs.ID)
	}
	num := t.TicketNumber
	if num == "" {
		num = t.ID
	}
	fmt.Printf("%s  %s\n", num, t.Title)
	fmt.Printf("status %s  priority %s  requester %s  created %s\n",
		t.Status.Tag, t.Priority.Tag, t.Requester,
		time.Unix(t.CreatedAt, 0).Format(time.DateTime))
	if t.Offline() {
		fmt.Println("(offline ticket, not yet on the server)")
	}
	if t.Desc != "" {
		fmt.Printf("\n%s\n", t.Desc)
	}
	fmt.Printf("\n%d comment(s):\n", len(thread))
	for _, c := range thread {
		fmt.Printf("  [%s] %s: %s\n", time.Unix(c.CreatedAt, 0).Format(time.DateTime), c.Author, c.Message)
		for _, a := range c.Attachments {
			fmt.Printf("      attachment %s (%d bytes, %s)\n", a.Name, a.Size, a.Mime)
		}
	}
	return nil
}
