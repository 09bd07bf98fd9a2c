package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// UpdateSettingsRequest is a partial settings update.
type UpdateSettingsRequest struct {
	AutoCloseEnabled    *bool    `json:"auto_close_enabled"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	SLAHours            *int     `json:"sla_hours"`
}

// SettingsResponse response.
type SettingsResponse struct {
	AutoCloseEnabled    bool      `json:"auto_close_enabled"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	SLAHours            int       `json:"sla_hours"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewSettingsResponse projects s.
func NewSettingsResponse(s domain.TriageSettings) SettingsResponse {
	return SettingsResponse{
		AutoCloseEnabled:    s.AutoCloseEnabled,
		ConfidenceThreshold: s.ConfidenceThreshold,
		SLAHours:            s.SLAHours,
		UpdatedAt:           s.UpdatedAt,
	}
}
