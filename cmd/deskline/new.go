package main

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/deskline/deskline/internal/desk"
)

func runNew(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	title := fs.StringP("title", "t", "", "ticket title")
	desc := fs.StringP("description", "d", "", "ticket description")
	priority := fs.StringP("priority", "P", "Medium", "priority tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAuth(svc); err != nil {
		return err
	}

	// validate the priority tag against the (possibly default) taxonomy
	known := svc.PriorityTaxonomy(ctx)
	valid := false
	for _, p := range known {
		if strings.EqualFold(p.Tag, *priority) {
			*priority = p.Tag
			valid = true
			break
		}
	}
	if !valid {
		tags := make([]string, 0, len(known))
		for _, p := range known {
			tags = append(tags, p.Tag)
		}
		return fmt.Errorf("unknown priority %q (one of: %s)", *priority, strings.Join(tags, ", "))
	}

	t, offline, err := svc.Create(ctx, *title, *desc, *priority)
	if err != nil {
		return err
	}
	if offline {
		fmt.Printf("created %s locally; the server rejected the authenticated request\n", t.ID)
		return nil
	}
	fmt.Printf("created %s (%s)\n", t.TicketNumber, t.ID)
	return nil
}
