package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/helpdesk"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/triage"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

const escalationReasonComplex = "Complex issue"

// TriageService orchestrates the triage pipeline: classification,
// retrieval, persistence, and helpdesk side effects.
type TriageService struct {
	classifier *triage.Classifier
	retriever  triage.Retriever
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	helpdesk   helpdesk.Client
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.TriageConfig
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	Classifier  *triage.Classifier
	Retriever   triage.Retriever
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Helpdesk    helpdesk.Client
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewTriageService constructs the service.
func NewTriageService(cfg config.TriageConfig, deps TriageDependencies) *TriageService {
	return &TriageService{
		classifier: deps.Classifier,
		retriever:  deps.Retriever,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		helpdesk:   deps.Helpdesk,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// ProcessTicket runs the full triage pipeline for one inbound ticket
// event. A ticket store failure aborts the run; helpdesk failures are
// logged and absorbed, the persisted record stays the system of
// record.
func (s *TriageService) ProcessTicket(ctx context.Context, payload domain.TicketPayload) domain.TriageResult {
	if err := validatePayload(payload); err != nil {
		s.logger.Warn("rejecting ticket payload", zap.Int64("external_id", payload.ExternalID), zap.Error(err))
		s.metrics.RecordTriage("failed")
		return failure(payload.ExternalID, err)
	}
	if payload.Priority <= 0 {
		payload.Priority = 1
	}

	s.logger.Info("processing ticket", zap.Int64("external_id", payload.ExternalID))

	classification := s.classifier.Classify(payload.Subject, payload.Description)

	// Both flags are evaluated independently on purpose; do not fold
	// them into an if/else ladder.
	autoResolve := classification.Tier == domain.TierOne && classification.Confidence > s.cfg.AutoResolveConfidence
	needsEscalation := classification.Tier == domain.TierComplex || classification.Confidence < s.cfg.EscalationConfidence

	response := s.retriever.Answer(ctx, payload.Subject+" "+payload.Description)

	ticket := &domain.Ticket{
		ExternalID:      payload.ExternalID,
		Subject:         payload.Subject,
		Description:     payload.Description,
		CustomerContact: payload.CustomerContact,
		Priority:        payload.Priority,
		Status:          domain.TicketStatusOpen,
		Category:        classification.Category,
		Tier:            classification.Tier,
		ConfidenceScore: classification.Confidence,
		AutoResolved:    autoResolve,
		BotResponse:     response,
	}
	if needsEscalation {
		reason := escalationReasonComplex
		ticket.EscalationReason = &reason
	}

	if err := s.tickets.Upsert(ctx, ticket); err != nil {
		s.logger.Error("ticket save failed", zap.Int64("external_id", payload.ExternalID), zap.Error(err))
		s.metrics.RecordTriage("failed")
		return failure(payload.ExternalID, apperrors.NewPersistenceError(err))
	}

	switch {
	case autoResolve:
		s.autoResolve(ctx, ticket)
	case needsEscalation:
		s.escalate(ctx, ticket)
	default:
		s.assist(ctx, ticket)
	}

	s.recordHistory(ctx, ticket.ID, "processed",
		fmt.Sprintf("classified as %s with %.0f%% confidence", classification.Tier, classification.Confidence*100))

	s.publishOutcome(ctx, ticket, classification)

	return domain.TriageResult{
		Success:      true,
		TicketID:     ticket.ID,
		ExternalID:   ticket.ExternalID,
		Tier:         classification.Tier,
		Confidence:   classification.Confidence,
		Category:     classification.Category,
		AutoResolved: autoResolve,
		Escalated:    needsEscalation,
		Response:     response,
	}
}

// Reprocess re-fetches the canonical payload from the helpdesk and
// runs the pipeline again. The existing ticket record is updated in
// place; history accumulates one entry per run.
func (s *TriageService) Reprocess(ctx context.Context, externalID int64) domain.TriageResult {
	payload, err := s.helpdesk.GetTicket(ctx, externalID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return failure(externalID, apperrors.NewNotFound("ticket", map[string]any{"external_id": externalID}))
		}
		s.logger.Error("reprocess fetch failed", zap.Int64("external_id", externalID), zap.Error(err))
		return failure(externalID, err)
	}
	return s.ProcessTicket(ctx, *payload)
}

// Stats returns aggregate counters over processed tickets.
func (s *TriageService) Stats(ctx context.Context) (*repository.TicketStats, error) {
	return s.tickets.Stats(ctx)
}

// Analytics returns the detailed reporting view.
func (s *TriageService) Analytics(ctx context.Context) (*repository.TicketAnalytics, error) {
	return s.tickets.Analytics(ctx)
}

func (s *TriageService) autoResolve(ctx context.Context, ticket *domain.Ticket) {
	s.logger.Info("auto-resolving ticket", zap.Int64("external_id", ticket.ExternalID))

	note := fmt.Sprintf("AUTOMATED RESPONSE\n\n%s\n\nThis ticket has been automatically resolved by our AI assistant.", ticket.BotResponse)
	if err := s.helpdesk.AddNote(ctx, ticket.ExternalID, note, false); err != nil {
		s.logger.Warn("auto-resolve note failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}
	if err := s.helpdesk.Resolve(ctx, ticket.ExternalID, "Resolved by AI assistant"); err != nil {
		s.logger.Warn("auto-resolve failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}

	s.updateDisposition(ctx, ticket, domain.TicketStatusResolved, nil)
	s.metrics.RecordTriage("auto_resolved")
}

func (s *TriageService) escalate(ctx context.Context, ticket *domain.Ticket) {
	s.logger.Info("escalating ticket", zap.Int64("external_id", ticket.ExternalID))

	reason := escalationReasonComplex
	if ticket.EscalationReason != nil {
		reason = *ticket.EscalationReason
	}
	note := fmt.Sprintf("ESCALATED\n\nReason: %s\n\nTier: %s\nConfidence: %.0f%%\n\n%s",
		reason, ticket.Tier, ticket.ConfidenceScore*100, ticket.BotResponse)

	if err := s.helpdesk.AddNote(ctx, ticket.ExternalID, note, true); err != nil {
		s.logger.Warn("escalation note failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}
	if err := s.helpdesk.Escalate(ctx, ticket.ExternalID, reason); err != nil {
		s.logger.Warn("escalation failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}

	assignee := "human_agent"
	s.updateDisposition(ctx, ticket, domain.TicketStatusEscalated, &assignee)
	s.metrics.RecordTriage("escalated")
}

func (s *TriageService) assist(ctx context.Context, ticket *domain.Ticket) {
	s.logger.Info("handling tier 2 ticket", zap.Int64("external_id", ticket.ExternalID))

	if err := s.helpdesk.AddNote(ctx, ticket.ExternalID, ticket.BotResponse, false); err != nil {
		s.logger.Warn("assist note failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}
	if err := s.helpdesk.UpdateStatus(ctx, ticket.ExternalID, helpdesk.StatusPending); err != nil {
		s.logger.Warn("assist status update failed", zap.Int64("external_id", ticket.ExternalID), zap.Error(err))
	}

	s.updateDisposition(ctx, ticket, domain.TicketStatusPending, nil)
	s.metrics.RecordTriage("assisted")
}

func (s *TriageService) updateDisposition(ctx context.Context, ticket *domain.Ticket, status domain.TicketStatus, assignedTo *string) {
	if err := s.tickets.UpdateDisposition(ctx, ticket.ID, status, assignedTo); err != nil {
		s.logger.Error("disposition update failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}
	ticket.Status = status
	ticket.AssignedTo = assignedTo
}

func (s *TriageService) recordHistory(ctx context.Context, ticketID, action, details string) {
	entry := &domain.TicketHistory{
		TicketID: ticketID,
		Action:   action,
		Details:  details,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("history write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TriageService) publishOutcome(ctx context.Context, ticket *domain.Ticket, classification domain.Classification) {
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketProcessed,
		TicketID:   ticket.ID,
		ExternalID: ticket.ExternalID,
		Payload: events.TicketProcessedPayload{
			Tier:       classification.Tier,
			Confidence: classification.Confidence,
			Category:   classification.Category,
			Status:     ticket.Status,
		},
	})

	switch ticket.Status {
	case domain.TicketStatusResolved:
		s.publishEvent(ctx, events.Event{
			Type:       events.EventTicketAutoResolved,
			TicketID:   ticket.ID,
			ExternalID: ticket.ExternalID,
			Payload: events.TicketAutoResolvedPayload{
				Category:        classification.Category,
				ResponsePreview: stringPreview(ticket.BotResponse, 120),
			},
		})
	case domain.TicketStatusEscalated:
		reason := escalationReasonComplex
		if ticket.EscalationReason != nil {
			reason = *ticket.EscalationReason
		}
		s.publishEvent(ctx, events.Event{
			Type:       events.EventTicketEscalated,
			TicketID:   ticket.ID,
			ExternalID: ticket.ExternalID,
			Payload: events.TicketEscalatedPayload{
				Reason:     reason,
				Tier:       classification.Tier,
				Confidence: classification.Confidence,
			},
		})
	}
}

func (s *TriageService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validatePayload(payload domain.TicketPayload) error {
	if payload.ExternalID <= 0 {
		return apperrors.NewValidationError("ticket id required", nil)
	}
	if strings.TrimSpace(payload.Subject) == "" && strings.TrimSpace(payload.Description) == "" {
		return apperrors.NewValidationError("subject or description required", nil)
	}
	return nil
}

func failure(externalID int64, err error) domain.TriageResult {
	return domain.TriageResult{
		Success:    false,
		ExternalID: externalID,
		Error:      err.Error(),
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
