package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// Repositories groups the stores one deployment uses.
type Repositories struct {
	Tickets     TicketRepository
	Articles    ArticleRepository
	Suggestions SuggestionRepository
	Audit       AuditRepository
	Settings    SettingsRepository
}

// NewPostgresRepositories builds every repository on pool.
func NewPostgresRepositories(pool *pgxpool.Pool, defaults domain.TriageSettings) Repositories {
	return Repositories{
		Tickets:     NewTicketRepository(pool),
		Articles:    NewArticleRepository(pool),
		Suggestions: NewSuggestionRepository(pool),
		Audit:       NewAuditRepository(pool),
		Settings:    NewSettingsRepository(pool, defaults),
	}
}
