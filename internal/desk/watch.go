package desk

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/deskline/internal/common"
)

// Watch polls the ticket list at the configured interval and hands each
// fresh page to onUpdate. Results superseded by a concurrent user-triggered
// fetch come back as ErrStale and are skipped, never applied. Runs until
// ctx is done.
func (s *Service) Watch(ctx context.Context, page, perPage int, onUpdate func([]common.Ticket, int)) error {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		tickets, total, err := s.Tickets(ctx, page, perPage, true)
		switch {
		case errors.Is(err, ErrStale):
			// a newer fetch already owns the state
		case err != nil:
			if common.Logger != nil {
				common.Logger.Warn("auto-refresh failed", zap.Error(err))
			}
		default:
			onUpdate(tickets, total)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
