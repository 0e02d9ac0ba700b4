package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/triage"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// DemoHandler exposes the classifier and retriever directly for
// interactive testing, without touching the store or the helpdesk.
type DemoHandler struct {
	classifier *triage.Classifier
	retriever  triage.Retriever
}

// NewDemoHandler constructs handler.
func NewDemoHandler(classifier *triage.Classifier, retriever triage.Retriever) *DemoHandler {
	return &DemoHandler{classifier: classifier, retriever: retriever}
}

// Classify POST /demo/classify.
func (h *DemoHandler) Classify(c *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Subject == "" && req.Description == "" {
		return apperrors.NewValidationError("subject or description required", nil)
	}

	classification := h.classifier.Classify(req.Subject, req.Description)
	return c.JSON(fiber.Map{"data": dto.ClassifyResponse{
		Tier:       classification.Tier,
		Confidence: classification.Confidence,
		Category:   classification.Category,
	}})
}

// Answer POST /demo/answer.
func (h *DemoHandler) Answer(c *fiber.Ctx) error {
	var req dto.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	response := h.retriever.Answer(c.UserContext(), req.Query)
	return c.JSON(fiber.Map{"data": dto.AnswerResponse{Response: response}})
}
