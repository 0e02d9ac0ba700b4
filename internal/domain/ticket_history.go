package domain

import "time"

// TicketHistory is an append-only audit entry recording what the
// triage pipeline did with a ticket on one processing run.
type TicketHistory struct {
	ID        string
	TicketID  string
	Action    string
	Details   string
	CreatedAt time.Time
}
