package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/auth"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// AdminHandler exposes reporting and reprocess endpoints behind admin
// authentication.
type AdminHandler struct {
	triage *service.TriageService
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAdminHandler constructs handler.
func NewAdminHandler(triageService *service.TriageService, tokens *auth.TokenManager, cfg config.AuthConfig) *AdminHandler {
	return &AdminHandler{triage: triageService, tokens: tokens, cfg: cfg}
}

// Login POST /admin/auth/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if h.cfg.AdminPasswordHash == "" {
		return apperrors.NewUnauthorized("admin access not configured")
	}
	if err := auth.ComparePassword(h.cfg.AdminPasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: token, ExpiresAt: expiresAt}})
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.triage.Stats(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Analytics GET /admin/analytics.
func (h *AdminHandler) Analytics(c *fiber.Ctx) error {
	analytics, err := h.triage.Analytics(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": analyticsResponse(analytics)})
}

// Reprocess POST /admin/tickets/:id/reprocess.
func (h *AdminHandler) Reprocess(c *fiber.Ctx) error {
	externalID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || externalID <= 0 {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}

	result := h.triage.Reprocess(c.UserContext(), externalID)
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"data": result})
	}
	return c.JSON(fiber.Map{"data": result})
}

func analyticsResponse(analytics *repository.TicketAnalytics) dto.AnalyticsResponse {
	recent := make([]dto.TicketSummary, 0, len(analytics.Recent))
	for _, ticket := range analytics.Recent {
		recent = append(recent, dto.TicketSummary{
			ExternalID: ticket.ExternalID,
			Subject:    ticket.Subject,
			Tier:       ticket.Tier,
			Status:     ticket.Status,
			CreatedAt:  ticket.CreatedAt,
		})
	}
	return dto.AnalyticsResponse{
		TierDistribution: map[string]int64{
			"tier_1":  analytics.TierDistribution.Tier1,
			"tier_2":  analytics.TierDistribution.Tier2,
			"complex": analytics.TierDistribution.Complex,
		},
		AverageConfidence: analytics.AverageConfidence,
		RecentTickets:     recent,
	}
}
