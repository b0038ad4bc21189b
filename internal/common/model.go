package common

import (
	"encoding/json"
	"strings"
)

// Ticket is the cached projection of a backend ticket. The backend keys
// tickets by a numeric id; the UI shows an alphanumeric ticket number.
// Offline-created tickets carry an "OFFLINE-" prefixed ID and exist only in
// the local store.
type Ticket struct {
	ID           string   `json:"id"`
	TicketNumber string   `json:"ticket_number"`
	Title        string   `json:"title"`
	Desc         string   `json:"description"`
	Requester    string   `json:"requester_name"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	CreatedAt    int64    `json:"created_at"`
	Attachments  int      `json:"attachment_count"`
}

// OfflineIDPrefix marks tickets that were created locally after the backend
// rejected the authenticated create call.
const OfflineIDPrefix = "OFFLINE-"

// Offline reports whether the ticket exists only in the local store.
func (t *Ticket) Offline() bool { return strings.HasPrefix(t.ID, OfflineIDPrefix) }

// TicketPage is one cached listing page. The page coordinates are stored so
// a request for a different page reads as a cache miss, and every reader of
// the list cache decodes the same shape.
type TicketPage struct {
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Tickets []Ticket `json:"tickets"`
	Total   int      `json:"total_count"`
}

// Status is one entry of the status taxonomy: a tag plus a display color.
type Status struct {
	Tag   string `json:"tag"`
	Color string `json:"color"`
}

// Priority is one entry of the priority taxonomy.
type Priority struct {
	Tag   string `json:"tag"`
	Color string `json:"color"`
}

// Comment is one entry of a ticket's thread. Comments are either mirrored
// from the server or created locally when submission fails.
type Comment struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	Message     string       `json:"message"`
	CreatedAt   int64        `json:"created_at"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment metadata as derived from a selected file or a server record.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
	URL  string `json:"url,omitempty"`
}

// User is the authenticated profile returned by login.
type User struct {
	Name  string `json:"user_name"`
	Email string `json:"email"`
	Token string `json:"access_token"`
}

// Envelope is the backend's uniform response shape. Status is the string
// "1" on success; anything else is a failure whose Message explains why.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// OK reports envelope-level success.
func (e *Envelope) OK() bool { return e.Status == "1" }

// AuthRejected reports whether the envelope signals an invalid or missing
// token. Only these two messages count; other failures are ordinary errors.
func (e *Envelope) AuthRejected() bool {
	if e.OK() {
		return false
	}
	return e.Message == "Invalid access token" || e.Message == "Bearer token not passed"
}

// DefaultStatuses is served when the taxonomy fetch fails or is rejected.
var DefaultStatuses = []Status{
	{Tag: "Open", Color: "#2e7d32"},
	{Tag: "Pending", Color: "#f9a825"},
	{Tag: "Resolved", Color: "#1565c0"},
	{Tag: "Closed", Color: "#757575"},
}

// DefaultPriorities mirrors DefaultStatuses for the priority taxonomy.
var DefaultPriorities = []Priority{
	{Tag: "Low", Color: "#9e9e9e"},
	{Tag: "Medium", Color: "#fb8c00"},
	{Tag: "High", Color: "#e53935"},
	{Tag: "Urgent", Color: "#b71c1c"},
}
