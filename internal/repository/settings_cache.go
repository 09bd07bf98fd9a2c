package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// SettingsCacheKey is the Redis key holding the cached settings snapshot.
const SettingsCacheKey = "helpdesk-triage:settings"

type cachedSettingsRepository struct {
	next   SettingsRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSettingsRepository fronts next with a Redis read-through cache.
// Cache errors fall back to next. A nil client or non-positive ttl disables caching.
func NewCachedSettingsRepository(next SettingsRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) SettingsRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedSettingsRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *cachedSettingsRepository) Get(ctx context.Context) (domain.TriageSettings, error) {
	raw, err := r.client.Get(ctx, SettingsCacheKey).Bytes()
	switch {
	case err == nil:
		var s domain.TriageSettings
		if jsonErr := json.Unmarshal(raw, &s); jsonErr == nil {
			return s, nil
		}
		r.logger.Warn("discarding malformed cached settings")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("settings cache read failed", zap.Error(err))
	}

	s, err := r.next.Get(ctx)
	if err != nil {
		return domain.TriageSettings{}, err
	}
	if payload, err := json.Marshal(s); err == nil {
		if err := r.client.Set(ctx, SettingsCacheKey, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("settings cache write failed", zap.Error(err))
		}
	}
	return s, nil
}

func (r *cachedSettingsRepository) Update(ctx context.Context, settings domain.TriageSettings) (domain.TriageSettings, error) {
	updated, err := r.next.Update(ctx, settings)
	if err != nil {
		return domain.TriageSettings{}, err
	}
	if err := r.client.Del(ctx, SettingsCacheKey).Err(); err != nil {
		r.logger.Warn("settings cache invalidation failed", zap.Error(err))
	}
	return updated, nil
}
