package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Upload carries a file selected for a comment, content included, so the
// call does not touch the filesystem.
type Upload struct {
	Name string
	Mime string
	Data []byte
}

// AddNote posts a comment to a ticket as a multipart form: the text fields
// plus one file part per upload.
func (c *Client) AddNote(ctx context.Context, ticketID, note string, uploads []Upload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"support_tickets_id": ticketID,
		"note":               note,
		"user_name":          c.user,
	}
	if tok := c.token(); tok != "" {
		fields["access_token"] = tok
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("add_note: building form: %w", err)
		}
	}
	for _, up := range uploads {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[]"; filename="%s"`, up.Name))
		mime := up.Mime
		if mime == "" {
			mime = "application/octet-stream"
		}
		hdr.Set("Content-Type", mime)
		part, err := w.CreatePart(hdr)
		if err != nil {
			return fmt.Errorf("add_note: building part: %w", err)
		}
		if _, err := part.Write(up.Data); err != nil {
			return fmt.Errorf("add_note: writing part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("add_note: closing form: %w", err)
	}

	env, err := c.do(ctx, "add_note", consts.MethodPost, "/add-ticket-note", nil, w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return err
	}
	if !env.OK() {
		return fmt.Errorf("add_note: %s", env.Message)
	}
	return nil
}

// AddNoteSimple is the reduced-payload fallback: same endpoint, urlencoded
// body, no files, no token. Tried once after the full attempt fails.
func (c *Client) AddNoteSimple(ctx context.Context, ticketID, note string) error {
	form := url.Values{}
	form.Set("support_tickets_id", ticketID)
	form.Set("note", note)
	form.Set("user_name", c.user)

	env, err := c.do(ctx, "add_note_simple", consts.MethodPost, "/add-ticket-note", nil,
		"application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return err
	}
	if !env.OK() {
		return fmt.Errorf("add_note_simple: %s", env.Message)
	}
	return nil
}
