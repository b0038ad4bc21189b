package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/deskline/deskline/internal/desk"
)

func runLogin(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.StringP("user", "u", "", "user name")
	pass := fs.StringP("password", "p", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return fmt.Errorf("--user is required")
	}
	if *pass == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		*pass = strings.TrimSpace(line)
	}
	if err := svc.Login(ctx, *user, *pass); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", *user)
	return nil
}

func runLogout(ctx context.Context, svc *desk.Service) error {
	if err := svc.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runReconcile(ctx context.Context, svc *desk.Service) error {
	if err := requireAuth(svc); err != nil {
		return err
	}
	n, err := svc.Reconcile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("dropped %d offline ticket(s) now present on the server\n", n)
	return nil
}
