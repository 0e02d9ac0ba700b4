package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketWebhook is the inbound helpdesk ticket event payload.
type TicketWebhook struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	RequesterID int64  `json:"requester_id"`
	Priority    int    `json:"priority"`
	Status      int    `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClassifyRequest is the demo classification payload.
type ClassifyRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// ClassifyResponse reports the classifier verdict.
type ClassifyResponse struct {
	Tier       domain.Tier `json:"tier"`
	Confidence float64     `json:"confidence"`
	Category   string      `json:"category"`
}

// AnswerRequest is the demo retrieval payload.
type AnswerRequest struct {
	Query string `json:"query"`
}

// AnswerResponse carries the knowledge base answer.
type AnswerResponse struct {
	Response string `json:"response"`
}

// TicketSummary is the compact ticket view used in analytics.
type TicketSummary struct {
	ExternalID int64               `json:"id"`
	Subject    string              `json:"subject"`
	Tier       domain.Tier         `json:"tier"`
	Status     domain.TicketStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AnalyticsResponse is the detailed reporting view.
type AnalyticsResponse struct {
	TierDistribution  map[string]int64 `json:"tier_distribution"`
	AverageConfidence float64          `json:"average_confidence"`
	RecentTickets     []TicketSummary  `json:"recent_tickets"`
}
