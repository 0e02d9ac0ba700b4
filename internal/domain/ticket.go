package domain

import "time"

// TicketStatus enumerates triage lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen      TicketStatus = "open"
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusResolved  TicketStatus = "resolved"
	TicketStatusEscalated TicketStatus = "escalated"
	TicketStatusClosed    TicketStatus = "closed"
)

// Tier is the triage bucket assigned by classification.
type Tier string

const (
	TierOne     Tier = "tier_1"
	TierTwo     Tier = "tier_2"
	TierComplex Tier = "complex"
)

// Ticket is the persisted record of a processed helpdesk ticket.
// ExternalID is the ticket's identity in the source helpdesk and is
// unique; reprocessing updates the same record.
type Ticket struct {
	ID               string
	ExternalID       int64
	Subject          string
	Description      string
	CustomerContact  string
	Priority         int
	Status           TicketStatus
	Category         string
	Tier             Tier
	ConfidenceScore  float64
	AutoResolved     bool
	EscalationReason *string
	BotResponse      string
	AssignedTo       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TicketPayload is the inbound ticket event shape, regardless of
// whether it arrived via webhook or a direct reprocess fetch.
type TicketPayload struct {
	ExternalID      int64
	Subject         string
	Description     string
	CustomerContact string
	Priority        int
}

// Classification is the classifier's verdict for a ticket.
type Classification struct {
	Tier       Tier
	Confidence float64
	Category   string
}

// TriageResult summarizes one processing run.
type TriageResult struct {
	Success      bool    `json:"success"`
	TicketID     string  `json:"ticket_id,omitempty"`
	ExternalID   int64   `json:"external_id,omitempty"`
	Tier         Tier    `json:"tier,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Category     string  `json:"category,omitempty"`
	AutoResolved bool    `json:"auto_resolved"`
	Escalated    bool    `json:"escalated"`
	Response     string  `json:"response,omitempty"`
	Error        string  `json:"error,omitempty"`
}
