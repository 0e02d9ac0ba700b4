package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/worker"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler accepts helpdesk ticket events and hands them to the
// background queue. The webhook responder never runs the pipeline
// inline.
type WebhookHandler struct {
	queue         *worker.Queue
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(queue *worker.Queue, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{queue: queue, webhookSecret: webhookSecret, logger: logger}
}

// HandleTicketEvent POST /webhook/helpdesk.
func (h *WebhookHandler) HandleTicketEvent(c *fiber.Ctx) error {
	if h.webhookSecret != "" {
		if secret := c.Get(webhookSecretHeader); secret != h.webhookSecret {
			h.logger.Warn("webhook secret mismatch")
			return apperrors.NewUnauthorized("invalid webhook secret")
		}
	}

	var req dto.TicketWebhook
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ID <= 0 {
		return apperrors.NewValidationError("ticket id required", nil)
	}

	payload := domain.TicketPayload{
		ExternalID:      req.ID,
		Subject:         req.Subject,
		Description:     req.Description,
		CustomerContact: strconv.FormatInt(req.RequesterID, 10),
		Priority:        req.Priority,
	}
	if payload.Priority <= 0 {
		payload.Priority = 1
	}

	if err := h.queue.Enqueue(c.UserContext(), payload); err != nil {
		h.logger.Error("enqueue failed", zap.Int64("external_id", req.ID), zap.Error(err))
		return apperrors.NewInternalError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":    "queued",
		"ticket_id": req.ID,
	})
}
