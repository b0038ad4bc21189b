package stub

import (
	"strconv"
	"sync"

	"github.com/deskline/deskline/internal/common"
)

// memoryRepo backs the stub with plain maps. Numeric ids count up from 1;
// the display ticket number is derived as TC-<id>.
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int
	tickets map[string]*common.Ticket
	notes   map[string][]common.Comment
	tokens  map[string]string // token -> user_name
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:  1,
		tickets: make(map[string]*common.Ticket),
		notes:   make(map[string][]common.Comment),
		tokens:  make(map[string]string),
	}
}

func (r *memoryRepo) create(t common.Ticket) *common.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := strconv.Itoa(r.nextID)
	r.nextID++
	t.ID = id
	t.TicketNumber = "TC-" + id
	r.tickets[id] = &t
	return &t
}

func (r *memoryRepo) get(id string) *common.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tickets[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

func (r *memoryRepo) list() []common.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Ticket, 0, len(r.tickets))
	// insertion order by numeric id
	for i := 1; i < r.nextID; i++ {
		if t, ok := r.tickets[strconv.Itoa(i)]; ok {
			out = append(out, *t)
		}
	}
	return out
}

func (r *memoryRepo) addNote(ticketID string, c common.Comment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticketID]; !ok {
		return false
	}
	r.notes[ticketID] = append(r.notes[ticketID], c)
	return true
}

func (r *memoryRepo) notesFor(ticketID string) []common.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Comment(nil), r.notes[ticketID]...)
}

func (r *memoryRepo) issueToken(token, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = user
}

func (r *memoryRepo) validToken(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok
}
