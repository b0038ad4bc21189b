// Package stub implements the helpdesk REST backend surface for local
// development and tests: the /apis routes with the {status, message, data}
// envelope, an in-memory repo, and token-checked writes.
package stub

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/google/uuid"
	prom "github.com/hertz-contrib/monitor-prometheus"

	"github.com/deskline/deskline/internal/common"
)

// path constants (avoid duplication)
const (
	pathLogin      = "/apis/login"
	pathLogout     = "/apis/logout"
	pathTickets    = "/apis/tickets"
	pathTicketID   = "/apis/tickets/:id"
	pathAddTicket  = "/apis/add-ticket"
	pathAddNote    = "/apis/add-ticket-note"
	pathPriorities = "/apis/support-tickets-priorities"
	pathStatuses   = "/apis/ticket-statuses"
)

const (
	msgInvalidToken = "Invalid access token"
	msgTokenMissing = "Bearer token not passed"
	msgNotFound     = "not found"
	msgBadRequest   = "bad request"
)

var promOnce sync.Once

// BuildServer assembles the hertz server with all routes for reuse in tests.
func BuildServer(cfg *common.Config) *server.Hertz {
	common.InitLogger()
	repo := newMemoryRepo()
	if tok := os.Getenv("DESKSTUB_TOKEN"); tok != "" {
		repo.issueToken(tok, "preset")
	}

	var h *server.Hertz
	promOnce.Do(func() {
		// first server may carry the prometheus tracer; disable via env for tests
		if os.Getenv("PROM_DISABLE") != "1" {
			h = server.Default(
				server.WithHostPorts(cfg.HTTPAddr),
				server.WithTracer(prom.NewServerTracer(":9101", "/metrics", prom.WithEnableGoCollector(true))),
			)
		}
	})
	if h == nil { // subsequent builds without the tracer to avoid duplicate /metrics
		h = server.Default(server.WithHostPorts(cfg.HTTPAddr))
	}
	for _, m := range middlewares() {
		h.Use(m)
	}
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		ctx.Response.Header.Set("X-Deskline-Project", common.ProjectName)
		ctx.Response.Header.Set("X-Deskline-Version", common.ProjectVersion)
		ctx.Next(c)
	})
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(200, map[string]any{"status": "ok"})
	})
	registerRoutes(h, repo)
	return h
}

func writeOK(ctx *app.RequestContext, data any) {
	raw, _ := json.Marshal(data)
	ctx.JSON(200, common.Envelope{Status: "1", Message: "OK", Data: raw})
}

// writeFail answers with a failure envelope. Auth rejections ride a 200:
// the client distinguishes them by message, not status code.
func writeFail(ctx *app.RequestContext, httpStatus int, message string) {
	ctx.JSON(httpStatus, common.Envelope{Status: "0", Message: message})
}

// bearerToken pulls the token from the access_token query or form param, or
// the Authorization header.
func bearerToken(ctx *app.RequestContext) string {
	if tok := ctx.Query("access_token"); tok != "" {
		return tok
	}
	if tok := ctx.PostForm("access_token"); tok != "" {
		return tok
	}
	h := string(ctx.GetHeader("Authorization"))
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func registerRoutes(h *server.Hertz, repo *memoryRepo) {
	h.POST(pathLogin, func(c context.Context, ctx *app.RequestContext) {
		var req struct {
			UserName string `json:"user_name"`
			Password string `json:"password"`
		}
		if err := ctx.Bind(&req); err != nil || req.UserName == "" {
			writeFail(ctx, 400, msgBadRequest)
			return
		}
		tok := uuid.NewString()
		repo.issueToken(tok, req.UserName)
		writeOK(ctx, common.User{Name: req.UserName, Email: req.UserName + "@example.test", Token: tok})
	})

	h.POST(pathLogout, func(c context.Context, ctx *app.RequestContext) {
		writeOK(ctx, map[string]string{"logged_out": "true"})
	})

	h.GET(pathTickets, func(c context.Context, ctx *app.RequestContext) {
		page, _ := strconv.Atoi(ctx.Query("page"))
		perPage, _ := strconv.Atoi(ctx.Query("per_page"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 {
			perPage = 10
		}
		all := repo.list()
		start := (page - 1) * perPage
		if start > len(all) {
			start = len(all)
		}
		end := start + perPage
		if end > len(all) {
			end = len(all)
		}
		writeOK(ctx, map[string]any{"tickets": all[start:end], "total_count": len(all)})
	})

	h.GET(pathTicketID, func(c context.Context, ctx *app.RequestContext) {
		id := string(ctx.Param("id"))
		t := repo.get(id)
		if t == nil {
			writeFail(ctx, 200, msgNotFound)
			return
		}
		writeOK(ctx, map[string]any{"ticket": t, "notes": repo.notesFor(id)})
	})

	h.POST(pathAddTicket, func(c context.Context, ctx *app.RequestContext) {
		tok := bearerToken(ctx)
		if tok == "" {
			writeFail(ctx, 200, msgTokenMissing)
			return
		}
		if !repo.validToken(tok) {
			writeFail(ctx, 200, msgInvalidToken)
			return
		}
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
			UserName    string `json:"user_name"`
		}
		if err := ctx.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			writeFail(ctx, 400, msgBadRequest)
			return
		}
		t := repo.create(common.Ticket{
			Title:     req.Title,
			Desc:      req.Description,
			Requester: req.UserName,
			Status:    common.Status{Tag: "Open", Color: "#2e7d32"},
			Priority:  common.Priority{Tag: req.Priority},
			CreatedAt: time.Now().Unix(),
		})
		writeOK(ctx, t)
	})

	h.POST(pathAddNote, func(c context.Context, ctx *app.RequestContext) {
		ticketID := ctx.PostForm("support_tickets_id")
		note := ctx.PostForm("note")
		if ticketID == "" || strings.TrimSpace(note) == "" {
			writeFail(ctx, 400, msgBadRequest)
			return
		}
		cm := common.Comment{
			ID:        uuid.NewString(),
			Author:    ctx.PostForm("user_name"),
			Message:   note,
			CreatedAt: time.Now().Unix(),
		}
		if form, err := ctx.MultipartForm(); err == nil {
			for _, fh := range form.File["files[]"] {
				cm.Attachments = append(cm.Attachments, common.Attachment{
					Name: fh.Filename,
					Size: fh.Size,
					Mime: fh.Header.Get("Content-Type"),
				})
			}
		}
		if !repo.addNote(ticketID, cm) {
			writeFail(ctx, 200, msgNotFound)
			return
		}
		writeOK(ctx, cm)
	})

	h.GET(pathPriorities, func(c context.Context, ctx *app.RequestContext) {
		writeOK(ctx, common.DefaultPriorities)
	})

	h.GET(pathStatuses, func(c context.Context, ctx *app.RequestContext) {
		writeOK(ctx, common.DefaultStatuses)
	})
}
