// Package api is the thin HTTP client for the helpdesk REST backend. All
// endpoints live under base + "/apis" and answer with the uniform
// {status, message, data} envelope; decoding and auth-rejection detection
// happen here so callers only see typed results and sentinel errors.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	hzerrors "github.com/cloudwego/hertz/pkg/common/errors"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/observability"
)

const apiPrefix = "/apis"

// Client issues authenticated REST calls with a fixed per-call timeout.
// Only the ticket-list fetch retries; everything else fails on first error.
type Client struct {
	base    string
	hc      *client.Client
	timeout time.Duration
	retries int
	user    string
	token   func() string
	tracer  trace.Tracer
}

// New builds a Client. token is consulted per call so session changes take
// effect without rebuilding the client.
func New(cfg *common.Config, token func() string) (*Client, error) {
	hc, err := client.NewClient(
		client.WithDialTimeout(3 * time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("building http client: %w", err)
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		base:    strings.TrimSuffix(cfg.BaseURL, "/"),
		hc:      hc,
		timeout: cfg.RequestTimeout,
		retries: cfg.ListRetries,
		user:    cfg.UserName,
		token:   token,
		tracer:  otel.Tracer("deskline/api"),
	}, nil
}

// SetUser changes the user_name attached to read calls.
func (c *Client) SetUser(name string) { c.user = name }

// Online probes connectivity with a short bounded request. Used before
// writes so an unplugged network degrades to the local fallbacks instead of
// waiting out the full timeout.
func (c *Client) Online(ctx context.Context) bool {
	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(c.base + apiPrefix + "/ticket-statuses")
	err := c.hc.DoTimeout(ctx, req, resp, 2*time.Second)
	return err == nil
}

// do performs one enveloped call. A nil q means no query string.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, contentType string, body []byte) (*common.Envelope, error) {
	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	uri := c.base + apiPrefix + path
	if len(q) > 0 {
		uri += "?" + q.Encode()
	}
	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()
	req.SetMethod(method)
	req.SetRequestURI(uri)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if len(body) > 0 {
		req.SetBody(body)
	}

	start := time.Now()
	err := c.hc.DoTimeout(ctx, req, resp, c.timeout)
	elapsed := time.Since(start)
	observability.ObserveRequest(op, err, elapsed)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrTimeout)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%s: unexpected status %d", op, code)
	}
	var env common.Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%s: decoding envelope: %w", op, err)
	}
	if env.AuthRejected() {
		observability.AuthRejections.Add(1)
		return &env, fmt.Errorf("%s: %s: %w", op, env.Message, common.ErrAuthRejected)
	}
	if common.Logger != nil {
		common.Logger.Debug("api call",
			zap.String("operation", op),
			zap.String("url", uri),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("latency", elapsed),
		)
	}
	return &env, nil
}

// isTimeout classifies transport timeouts by the exported sentinels rather
// than message text.
func isTimeout(err error) bool {
	return errors.Is(err, hzerrors.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) readQuery() url.Values {
	q := url.Values{}
	if c.user != "" {
		q.Set("user_name", c.user)
	}
	return q
}

// Login exchanges credentials for a profile + token.
func (c *Client) Login(ctx context.Context, username, password string) (common.User, error) {
	body, _ := json.Marshal(map[string]string{"user_name": username, "password": password})
	env, err := c.do(ctx, "login", consts.MethodPost, "/login", nil, "application/json", body)
	if err != nil {
		return common.User{}, err
	}
	if !env.OK() {
		return common.User{}, fmt.Errorf("login: %s", env.Message)
	}
	var u common.User
	if err := json.Unmarshal(env.Data, &u); err != nil {
		return common.User{}, fmt.Errorf("login: decoding user: %w", err)
	}
	if u.Name == "" {
		u.Name = username
	}
	return u, nil
}

// Logout is best-effort; local session teardown never waits on it.
func (c *Client) Logout(ctx context.Context) error {
	env, err := c.do(ctx, "logout", consts.MethodPost, "/logout", nil, "", nil)
	if err != nil {
		return err
	}
	if !env.OK() {
		return fmt.Errorf("logout: %s", env.Message)
	}
	return nil
}

// ticketListData is the data member of the list envelope.
type ticketListData struct {
	Tickets []common.Ticket `json:"tickets"`
	Total   int             `json:"total_count"`
}

// ListTickets fetches one listing page. This is the only call with a retry
// budget: attempts are spaced by a linearly growing delay.
func (c *Client) ListTickets(ctx context.Context, page, perPage int) ([]common.Ticket, int, error) {
	q := c.readQuery()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			observability.ListRetries.Add(1)
			select {
			case <-time.After(time.Duration(attempt-1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}
		env, err := c.do(ctx, "list_tickets", consts.MethodGet, "/tickets", q, "", nil)
		if err != nil {
			if errors.Is(err, common.ErrAuthRejected) {
				return nil, 0, err
			}
			lastErr = err
			continue
		}
		if !env.OK() {
			return nil, 0, fmt.Errorf("list_tickets: %s", env.Message)
		}
		var data ticketListData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, 0, fmt.Errorf("list_tickets: decoding: %w", err)
		}
		observability.TicketListFetches.Add(1)
		return data.Tickets, data.Total, nil
	}
	return nil, 0, lastErr
}

// ticketDetailData is the data member of the detail envelope.
type ticketDetailData struct {
	Ticket common.Ticket    `json:"ticket"`
	Notes  []common.Comment `json:"notes"`
}

// TicketDetail fetches one ticket with its comment thread. The id must be
// the backend numeric id; callers resolve display identifiers first.
func (c *Client) TicketDetail(ctx context.Context, id string) (common.Ticket, []common.Comment, error) {
	env, err := c.do(ctx, "ticket_detail", consts.MethodGet, "/tickets/"+url.PathEscape(id), c.readQuery(), "", nil)
	if err != nil {
		return common.Ticket{}, nil, err
	}
	if !env.OK() {
		if strings.EqualFold(env.Message, "not found") {
			return common.Ticket{}, nil, fmt.Errorf("ticket_detail %s: %w", id, common.ErrNotFound)
		}
		return common.Ticket{}, nil, fmt.Errorf("ticket_detail %s: %s", id, env.Message)
	}
	var data ticketDetailData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return common.Ticket{}, nil, fmt.Errorf("ticket_detail: decoding: %w", err)
	}
	observability.TicketDetailFetches.Add(1)
	return data.Ticket, data.Notes, nil
}

// CreateTicket posts a new ticket. The token also rides the access_token
// query param, which is what the backend's auth check actually reads.
func (c *Client) CreateTicket(ctx context.Context, title, desc, priority string) (common.Ticket, error) {
	q := url.Values{}
	if tok := c.token(); tok != "" {
		q.Set("access_token", tok)
	}
	body, _ := json.Marshal(map[string]string{
		"title":       title,
		"description": desc,
		"priority":    priority,
		"user_name":   c.user,
	})
	env, err := c.do(ctx, "create_ticket", consts.MethodPost, "/add-ticket", q, "application/json", body)
	if err != nil {
		return common.Ticket{}, err
	}
	if !env.OK() {
		return common.Ticket{}, fmt.Errorf("create_ticket: %s", env.Message)
	}
	var t common.Ticket
	if err := json.Unmarshal(env.Data, &t); err != nil {
		return common.Ticket{}, fmt.Errorf("create_ticket: decoding: %w", err)
	}
	return t, nil
}

// Statuses fetches the status taxonomy.
func (c *Client) Statuses(ctx context.Context) ([]common.Status, error) {
	env, err := c.do(ctx, "statuses", consts.MethodGet, "/ticket-statuses", nil, "", nil)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, fmt.Errorf("statuses: %s", env.Message)
	}
	var out []common.Status
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("statuses: decoding: %w", err)
	}
	return out, nil
}

// Priorities fetches the priority taxonomy.
func (c *Client) Priorities(ctx context.Context) ([]common.Priority, error) {
	q := c.readQuery()
	q.Set("page", "1")
	env, err := c.do(ctx, "priorities", consts.MethodGet, "/support-tickets-priorities", q, "", nil)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, fmt.Errorf("priorities: %s", env.Message)
	}
	var out []common.Priority
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("priorities: decoding: %w", err)
	}
	return out, nil
}
