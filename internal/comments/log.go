package comments

import (
	"errors"

	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/store"
)

// Log is the per-ticket local comment log: comments that never made it to
// the server but must survive reloads. Keyed by ticket id under one store
// entry; never reconciled with the server.
type Log struct {
	st *store.Store
}

func NewLog(st *store.Store) *Log { return &Log{st: st} }

func (l *Log) load() map[string][]common.Comment {
	m := make(map[string][]common.Comment)
	if err := l.st.GetJSON(store.KeyLocalComments, &m); err != nil && !errors.Is(err, store.ErrNoKey) {
		return make(map[string][]common.Comment)
	}
	return m
}

// Append adds c to ticketID's log and persists.
func (l *Log) Append(ticketID string, c common.Comment) error {
	m := l.load()
	m[ticketID] = append(m[ticketID], c)
	return l.st.SetJSON(store.KeyLocalComments, m)
}

// For returns ticketID's logged comments, oldest first.
func (l *Log) For(ticketID string) []common.Comment {
	return l.load()[ticketID]
}

// Drop clears ticketID's log. Used when an explicit reconcile confirms the
// server has the comments.
func (l *Log) Drop(ticketID string) error {
	m := l.load()
	if _, ok := m[ticketID]; !ok {
		return nil
	}
	delete(m, ticketID)
	return l.st.SetJSON(store.KeyLocalComments, m)
}
