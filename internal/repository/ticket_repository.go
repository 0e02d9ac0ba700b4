package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketStats aggregates processing outcomes for reporting.
type TicketStats struct {
	Total              int64   `json:"total_tickets"`
	AutoResolved       int64   `json:"auto_resolved"`
	Escalated          int64   `json:"escalated"`
	Pending            int64   `json:"pending"`
	AutoResolutionRate float64 `json:"auto_resolution_rate"`
}

// TierDistribution counts tickets per triage tier.
type TierDistribution struct {
	Tier1   int64 `json:"tier_1"`
	Tier2   int64 `json:"tier_2"`
	Complex int64 `json:"complex"`
}

// TicketAnalytics is the detailed reporting view.
type TicketAnalytics struct {
	TierDistribution  TierDistribution `json:"tier_distribution"`
	AverageConfidence float64          `json:"average_confidence"`
	Recent            []domain.Ticket  `json:"-"`
}

// TicketRepository encapsulates ticket persistence. Upsert keys on the
// external helpdesk id, so reprocessing a ticket updates the existing
// record instead of inserting a duplicate.
type TicketRepository interface {
	Upsert(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalID(ctx context.Context, externalID int64) (*domain.Ticket, error)
	UpdateDisposition(ctx context.Context, id string, status domain.TicketStatus, assignedTo *string) error
	ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error)
	ListByTier(ctx context.Context, tier domain.Tier, limit, offset int) ([]domain.Ticket, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error)
	Stats(ctx context.Context) (*TicketStats, error)
	Analytics(ctx context.Context) (*TicketAnalytics, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_id, subject, description, customer_contact, priority,
               status, category, tier, confidence_score, auto_resolved,
               escalation_reason, bot_response, assigned_to, created_at, updated_at`

func (r *ticketRepository) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_id, subject, description, customer_contact, priority,
                             status, category, tier, confidence_score, auto_resolved,
                             escalation_reason, bot_response, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (external_id) DO UPDATE SET
            subject=EXCLUDED.subject,
            description=EXCLUDED.description,
            customer_contact=EXCLUDED.customer_contact,
            priority=EXCLUDED.priority,
            status=EXCLUDED.status,
            category=EXCLUDED.category,
            tier=EXCLUDED.tier,
            confidence_score=EXCLUDED.confidence_score,
            auto_resolved=EXCLUDED.auto_resolved,
            escalation_reason=EXCLUDED.escalation_reason,
            bot_response=EXCLUDED.bot_response,
            assigned_to=EXCLUDED.assigned_to,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalID,
		ticket.Subject,
		ticket.Description,
		ticket.CustomerContact,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.Tier,
		ticket.ConfidenceScore,
		ticket.AutoResolved,
		ticket.EscalationReason,
		ticket.BotResponse,
		ticket.AssignedTo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE external_id=$1`
	return r.fetchSingle(ctx, query, externalID)
}

func (r *ticketRepository) UpdateDisposition(ctx context.Context, id string, status domain.TicketStatus, assignedTo *string) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, assignedTo, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ExternalID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CustomerContact,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.Tier,
		&ticket.ConfidenceScore,
		&ticket.AutoResolved,
		&ticket.EscalationReason,
		&ticket.BotResponse,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE status=$1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, status, normalizeLimit(limit), normalizeOffset(offset))
}

func (r *ticketRepository) ListByTier(ctx context.Context, tier domain.Tier, limit, offset int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE tier=$1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, tier, normalizeLimit(limit), normalizeOffset(offset))
}

func (r *ticketRepository) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, normalizeLimit(limit))
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context) (*TicketStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE auto_resolved),
               COUNT(*) FILTER (WHERE status='escalated'),
               COUNT(*) FILTER (WHERE status='pending')
        FROM tickets`
	var stats TicketStats
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.AutoResolved,
		&stats.Escalated,
		&stats.Pending,
	); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.AutoResolutionRate = float64(stats.AutoResolved) / float64(stats.Total) * 100
	}
	return &stats, nil
}

func (r *ticketRepository) Analytics(ctx context.Context) (*TicketAnalytics, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE tier='tier_1'),
               COUNT(*) FILTER (WHERE tier='tier_2'),
               COUNT(*) FILTER (WHERE tier='complex'),
               COALESCE(AVG(confidence_score), 0)
        FROM tickets`
	var analytics TicketAnalytics
	if err := r.pool.QueryRow(ctx, query).Scan(
		&analytics.TierDistribution.Tier1,
		&analytics.TierDistribution.Tier2,
		&analytics.TierDistribution.Complex,
		&analytics.AverageConfidence,
	); err != nil {
		return nil, err
	}
	recent, err := r.ListRecent(ctx, 10)
	if err != nil {
		return nil, err
	}
	analytics.Recent = recent
	return &analytics, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.CustomerContact,
			&ticket.Priority,
			&ticket.Status,
			&ticket.Category,
			&ticket.Tier,
			&ticket.ConfidenceScore,
			&ticket.AutoResolved,
			&ticket.EscalationReason,
			&ticket.BotResponse,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
