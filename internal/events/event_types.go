package events

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketProcessed    EventType = "ticket_processed"
	EventTicketAutoResolved EventType = "ticket_auto_resolved"
	EventTicketEscalated    EventType = "ticket_escalated"
)

// Event represents a domain event emitted by the triage pipeline.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticket_id"`
	ExternalID int64       `json:"external_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketProcessedPayload payload.
type TicketProcessedPayload struct {
	Tier       domain.Tier         `json:"tier"`
	Confidence float64             `json:"confidence"`
	Category   string              `json:"category"`
	Status     domain.TicketStatus `json:"status"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Reason     string      `json:"reason"`
	Tier       domain.Tier `json:"tier"`
	Confidence float64     `json:"confidence"`
}

// TicketAutoResolvedPayload payload.
type TicketAutoResolvedPayload struct {
	Category        string `json:"category"`
	ResponsePreview string `json:"response_preview"`
}
