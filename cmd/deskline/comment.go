package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/deskline/deskline/internal/api"
	"github.com/deskline/deskline/internal/desk"
)

func runComment(ctx context.Context, svc *desk.Service, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	msg := fs.StringP("message", "m", "", "comment text")
	files := fs.StringArrayP("file", "f", nil, "attach a file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: deskline comment <ticket-number> -m <text> [-f file]...")
	}
	if err := requireAuth(svc); err != nil {
		return err
	}

	uploads, err := readUploads(*files)
	if err != nil {
		return err
	}
	res, err := svc.Comment(ctx, fs.Arg(0), *msg, uploads)
	if err != nil {
		return err
	}
	if res.PersistedRemotely {
		fmt.Println("comment added")
	} else {
		fmt.Println("comment saved locally; the server did not accept it")
	}
	return nil
}

func readUploads(paths []string) ([]api.Upload, error) {
	var out []api.Upload
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}
		name := filepath.Base(p)
		out = append(out, api.Upload{
			Name: name,
			Mime: mime.TypeByExtension(filepath.Ext(name)),
			Data: data,
		})
	}
	return out, nil
}
