package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// SettingsRepository persists the singleton triage settings row.
type SettingsRepository interface {
	// Get returns the settings, creating the row from defaults on first read.
	Get(ctx context.Context) (domain.TriageSettings, error)
	Update(ctx context.Context, settings domain.TriageSettings) (domain.TriageSettings, error)
}

type settingsRepository struct {
	pool     *pgxpool.Pool
	defaults domain.TriageSettings
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(pool *pgxpool.Pool, defaults domain.TriageSettings) SettingsRepository {
	return &settingsRepository{pool: pool, defaults: defaults}
}

func (r *settingsRepository) Get(ctx context.Context) (domain.TriageSettings, error) {
	const seed = `
        INSERT INTO triage_settings (id, auto_close_enabled, confidence_threshold, sla_hours)
        VALUES (1,$1,$2,$3)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, seed,
		r.defaults.AutoCloseEnabled,
		r.defaults.ConfidenceThreshold,
		r.defaults.SLAHours,
	); err != nil {
		return domain.TriageSettings{}, err
	}

	var s domain.TriageSettings
	const query = `SELECT auto_close_enabled, confidence_threshold, sla_hours, updated_at FROM triage_settings WHERE id=1`
	if err := r.pool.QueryRow(ctx, query).Scan(
		&s.AutoCloseEnabled,
		&s.ConfidenceThreshold,
		&s.SLAHours,
		&s.UpdatedAt,
	); err != nil {
		return domain.TriageSettings{}, err
	}
	return s, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings domain.TriageSettings) (domain.TriageSettings, error) {
	const query = `
        INSERT INTO triage_settings (id, auto_close_enabled, confidence_threshold, sla_hours)
        VALUES (1,$1,$2,$3)
        ON CONFLICT (id) DO UPDATE SET auto_close_enabled=EXCLUDED.auto_close_enabled,
            confidence_threshold=EXCLUDED.confidence_threshold, sla_hours=EXCLUDED.sla_hours,
            updated_at=NOW()
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		settings.AutoCloseEnabled,
		settings.ConfidenceThreshold,
		settings.SLAHours,
	).Scan(&settings.UpdatedAt); err != nil {
		return domain.TriageSettings{}, err
	}
	return settings, nil
}
