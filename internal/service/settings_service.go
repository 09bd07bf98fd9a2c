package service

import (
	"context"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// SettingsUpdate is a partial update; nil fields keep their current value.
type SettingsUpdate struct {
	AutoCloseEnabled    *bool
	ConfidenceThreshold *float64
	SLAHours            *int
}

// SettingsService reads and updates the triage tunables.
type SettingsService struct {
	settings repository.SettingsRepository
}

// NewSettingsService constructs the service.
func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (domain.TriageSettings, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return domain.TriageSettings{}, apperrors.MapError(err)
	}
	return current, nil
}

// Update merges in and stores the result. Runs already in progress keep the
// snapshot they started with.
func (s *SettingsService) Update(ctx context.Context, in SettingsUpdate) (domain.TriageSettings, error) {
	details := map[string]any{}
	if in.ConfidenceThreshold != nil && (*in.ConfidenceThreshold < 0 || *in.ConfidenceThreshold > 1) {
		details["confidenceThreshold"] = "must be between 0 and 1"
	}
	if in.SLAHours != nil && *in.SLAHours < 1 {
		details["slaHours"] = "must be at least 1"
	}
	if len(details) > 0 {
		return domain.TriageSettings{}, apperrors.NewValidationError("invalid settings", details)
	}

	current, err := s.Get(ctx)
	if err != nil {
		return domain.TriageSettings{}, err
	}
	if in.AutoCloseEnabled != nil {
		current.AutoCloseEnabled = *in.AutoCloseEnabled
	}
	if in.ConfidenceThreshold != nil {
		current.ConfidenceThreshold = *in.ConfidenceThreshold
	}
	if in.SLAHours != nil {
		current.SLAHours = *in.SLAHours
	}

	updated, err := s.settings.Update(ctx, current)
	if err != nil {
		return domain.TriageSettings{}, apperrors.MapError(err)
	}
	return updated, nil
}
