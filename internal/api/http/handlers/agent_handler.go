package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-triage/internal/api/dto"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// AgentHandler serves the administrative triage endpoints.
type AgentHandler struct {
	service *service.AgentService
}

// NewAgentHandler constructs handler.
func NewAgentHandler(agentService *service.AgentService) *AgentHandler {
	return &AgentHandler{service: agentService}
}

// Triage POST /agent/triage. Waits for the run; a failed run is still 200
// with success=false.
func (h *AgentHandler) Triage(c *fiber.Ctx) error {
	var req dto.TriageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticket_id required", map[string]any{"ticket_id": "required"})
	}
	res, err := h.service.Retriage(c.UserContext(), req.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTriageResponse(res)})
}

// Suggestion GET /agent/suggestion/:ticketId.
func (h *AgentHandler) Suggestion(c *fiber.Ctx) error {
	details, err := h.service.LatestSuggestion(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionResponse(details)})
}
