package domain

import "time"

// StatusLogEntry is an immutable audit record of a single status change.
// OldStatus is nil only for the creation entry; ActorID is nil for
// system-initiated changes. Entries for a ticket ordered by CreatedAt
// reconstruct its full status history.
type StatusLogEntry struct {
	ID        string
	TicketID  string
	OldStatus *TicketStatus
	NewStatus TicketStatus
	ActorID   *string
	Note      string
	CreatedAt time.Time
}
