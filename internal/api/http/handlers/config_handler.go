package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-triage/internal/api/dto"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// ConfigHandler exposes the triage settings.
type ConfigHandler struct {
	service *service.SettingsService
}

// NewConfigHandler constructs handler.
func NewConfigHandler(settings *service.SettingsService) *ConfigHandler {
	return &ConfigHandler{service: settings}
}

// Get GET /config.
func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	settings, err := h.service.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}

// Update PUT /config.
func (h *ConfigHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.Update(c.UserContext(), service.SettingsUpdate{
		AutoCloseEnabled:    req.AutoCloseEnabled,
		ConfidenceThreshold: req.ConfidenceThreshold,
		SLAHours:            req.SLAHours,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(settings)})
}
