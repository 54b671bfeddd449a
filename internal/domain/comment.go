package domain

import "time"

// Comment is a message on a ticket thread. Internal comments are visible to
// contractor staff only and must never be surfaced or routed to PM users or
// residents.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
