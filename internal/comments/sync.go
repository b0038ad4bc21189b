// Package comments holds the one comment synchronizer. Remote submission is
// a list of attempt strategies tried in order; local application is
// unconditional once validation passes, so the thread always reflects the
// new comment immediately.
package comments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskline/deskline/internal/api"
	"github.com/deskline/deskline/internal/cache"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/observability"
)

// MaxAttachments bounds one comment's file selection.
const MaxAttachments = 5

// LocalAuthor labels optimistic comments in the thread.
const LocalAuthor = "You"

// Attempt is one remote submission strategy.
type Attempt func(ctx context.Context, ticketID, text string, uploads []api.Upload) error

// Remote is the slice of the API client the synchronizer needs.
type Remote interface {
	AddNote(ctx context.Context, ticketID, note string, uploads []api.Upload) error
	AddNoteSimple(ctx context.Context, ticketID, note string) error
}

// Result reports what Submit achieved. AppliedLocally is true whenever
// validation passed; PersistedRemotely only when some attempt succeeded.
type Result struct {
	Comment           common.Comment
	AppliedLocally    bool
	PersistedRemotely bool
}

type Synchronizer struct {
	attempts []Attempt
	log      *Log
	cm       *cache.Manager
	now      func() time.Time
	newID    func() string
}

// NewSynchronizer wires the default attempt chain: the full multipart
// submission, then the reduced-payload fallback.
func NewSynchronizer(remote Remote, log *Log, cm *cache.Manager) *Synchronizer {
	return &Synchronizer{
		attempts: []Attempt{
			func(ctx context.Context, id, text string, ups []api.Upload) error {
				return remote.AddNote(ctx, id, text, ups)
			},
			func(ctx context.Context, id, text string, _ []api.Upload) error {
				return remote.AddNoteSimple(ctx, id, text)
			},
		},
		log:   log,
		cm:    cm,
		now:   time.Now,
		newID: func() string { return "local-" + uuid.NewString() },
	}
}

// SetClock and SetIDFunc are test hooks.
func (s *Synchronizer) SetClock(now func() time.Time) { s.now = now }
func (s *Synchronizer) SetIDFunc(f func() string)     { s.newID = f }

// Submit validates, runs the attempt chain, and applies the comment locally
// regardless of the remote outcome. Network and timeout failures never
// surface as errors; only validation does.
func (s *Synchronizer) Submit(ctx context.Context, ticketID, text string, uploads []api.Upload) (Result, error) {
	if strings.TrimSpace(text) == "" && len(uploads) == 0 {
		return Result{}, fmt.Errorf("comment is empty: %w", common.ErrValidation)
	}
	if len(uploads) > MaxAttachments {
		return Result{}, fmt.Errorf("at most %d attachments: %w", MaxAttachments, common.ErrValidation)
	}

	var remoteErr error
	persisted := false
	for _, attempt := range s.attempts {
		if remoteErr = attempt(ctx, ticketID, text, uploads); remoteErr == nil {
			persisted = true
			break
		}
	}

	c := common.Comment{
		ID:          s.newID(),
		Author:      LocalAuthor,
		Message:     text,
		CreatedAt:   s.now().Unix(),
		Attachments: deriveMeta(uploads),
	}

	if persisted {
		observability.CommentsRemote.Add(1)
		// next fetch reconciles with the server's copy
		_ = s.cm.Invalidate(cache.TicketDetail, ticketID)
		_ = s.cm.Invalidate(cache.TicketList, "")
	} else {
		observability.CommentsLocal.Add(1)
		if common.Logger != nil {
			common.Logger.Warn("comment kept local",
				zap.String("ticket_id", ticketID),
				zap.Error(remoteErr),
			)
		}
		if err := s.log.Append(ticketID, c); err != nil {
			return Result{Comment: c, AppliedLocally: true}, err
		}
	}
	return Result{Comment: c, AppliedLocally: true, PersistedRemotely: persisted}, nil
}

// deriveMeta keeps only attachment metadata for the local record.
func deriveMeta(uploads []api.Upload) []common.Attachment {
	if len(uploads) == 0 {
		return nil
	}
	out := make([]common.Attachment, 0, len(uploads))
	for _, up := range uploads {
		out = append(out, common.Attachment{
			Name: up.Name,
			Size: int64(len(up.Data)),
			Mime: up.Mime,
		})
	}
	return out
}
