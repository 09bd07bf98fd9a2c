// Package memory provides in-process implementations of the repository
// interfaces. The service uses them when no Postgres DSN is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

// Store holds every collection behind one lock.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	tickets     map[string]*domain.Ticket
	articles    []domain.Article
	suggestions []domain.AgentSuggestion
	audit       []domain.AuditLogEntry
	seq         int64
	settings    *domain.TriageSettings
	defaults    domain.TriageSettings
}

// NewStore creates an empty store seeded with default settings.
func NewStore(defaults domain.TriageSettings) *Store {
	return &Store{
		now:      time.Now,
		tickets:  make(map[string]*domain.Ticket),
		defaults: defaults,
	}
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Articles returns the article repository view.
func (s *Store) Articles() repository.ArticleRepository { return articleRepo{s} }

// Suggestions returns the suggestion repository view.
func (s *Store) Suggestions() repository.SuggestionRepository { return suggestionRepo{s} }

// Audit returns the audit repository view.
func (s *Store) Audit() repository.AuditRepository { return auditRepo{s} }

// Settings returns the settings repository view.
func (s *Store) Settings() repository.SettingsRepository { return settingsRepo{s} }

// Repositories returns every view of the store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tickets:     s.Tickets(),
		Articles:    s.Articles(),
		Suggestions: s.Suggestions(),
		Audit:       s.Audit(),
		Settings:    s.Settings(),
	}
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	now := r.s.now()
	for i := range ticket.Replies {
		if ticket.Replies[i].ID == "" {
			ticket.Replies[i].ID = uuid.NewString()
			ticket.Replies[i].CreatedAt = now
		}
	}
	ticket.Version++
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		result = append(result, *t.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, filter.Limit, filter.Offset), nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type articleRepo struct{ s *Store }

func (r articleRepo) Create(_ context.Context, article *domain.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	article.ID = uuid.NewString()
	article.CreatedAt = now
	article.UpdatedAt = now
	tags := make([]string, 0, len(article.Tags))
	for _, tag := range article.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	article.Tags = tags
	if article.Status == "" {
		article.Status = domain.ArticleStatusDraft
	}
	r.s.articles = append(r.s.articles, *article)
	return nil
}

func (r articleRepo) GetByID(_ context.Context, id string) (*domain.Article, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.articles {
		if r.s.articles[i].ID == id {
			a := r.s.articles[i]
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Field weights mirror the Postgres setweight A/B/C ordering.
const (
	titleWeight = 3
	tagWeight   = 2
	bodyWeight  = 1
)

func (r articleRepo) Search(_ context.Context, query string, opts repository.ArticleQuery) ([]domain.Article, error) {
	opts = articleDefaults(opts)
	terms := repository.SearchTerms(query)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type scored struct {
		article domain.Article
		score   int
	}
	var hits []scored
	for _, a := range r.s.articles {
		if a.Status != opts.Status {
			continue
		}
		if len(terms) == 0 {
			hits = append(hits, scored{article: a})
			continue
		}
		score := 0
		title := termSet(repository.SearchTerms(a.Title))
		tags := termSet(repository.SearchTerms(strings.Join(a.Tags, " ")))
		body := termSet(repository.SearchTerms(a.Body))
		for _, term := range terms {
			if title[term] {
				score += titleWeight
			}
			if tags[term] {
				score += tagWeight
			}
			if body[term] {
				score += bodyWeight
			}
		}
		if score > 0 {
			hits = append(hits, scored{article: a, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].article.CreatedAt.After(hits[j].article.CreatedAt)
	})

	result := make([]domain.Article, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.article)
	}
	return page(result, opts.Limit, 0), nil
}

func (r articleRepo) FindByTag(_ context.Context, tag string, opts repository.ArticleQuery) ([]domain.Article, error) {
	opts = articleDefaults(opts)
	tag = strings.ToLower(strings.TrimSpace(tag))

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Article
	for _, a := range r.s.articles {
		if a.Status != opts.Status {
			continue
		}
		for _, t := range a.Tags {
			if t == tag {
				result = append(result, a)
				break
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, opts.Limit, 0), nil
}

func articleDefaults(opts repository.ArticleQuery) repository.ArticleQuery {
	if opts.Status == "" {
		opts.Status = domain.ArticleStatusPublished
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return opts
}

func termSet(terms []string) map[string]bool {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	return set
}

type suggestionRepo struct{ s *Store }

func (r suggestionRepo) Create(_ context.Context, suggestion *domain.AgentSuggestion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	suggestion.ID = uuid.NewString()
	suggestion.CreatedAt = r.s.now()
	cp := *suggestion
	cp.ArticleIDs = append([]string(nil), suggestion.ArticleIDs...)
	r.s.suggestions = append(r.s.suggestions, cp)
	return nil
}

func (r suggestionRepo) GetByID(_ context.Context, id string) (*domain.AgentSuggestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.suggestions {
		if r.s.suggestions[i].ID == id {
			cp := r.s.suggestions[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r suggestionRepo) LatestForTicket(_ context.Context, ticketID string) (*domain.AgentSuggestion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.suggestions) - 1; i >= 0; i-- {
		if r.s.suggestions[i].TicketID == ticketID {
			cp := r.s.suggestions[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	entry.ID = uuid.NewString()
	entry.Seq = r.s.seq
	cp := *entry
	r.s.audit = append(r.s.audit, cp)
	return nil
}

func (r auditRepo) ListByTrace(_ context.Context, traceID string) ([]domain.AuditLogEntry, error) {
	return r.filter(func(e domain.AuditLogEntry) bool { return e.TraceID == traceID }, 0, 0), nil
}

func (r auditRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.filter(func(e domain.AuditLogEntry) bool { return e.TicketID == ticketID }, limit, offset), nil
}

func (r auditRepo) filter(keep func(domain.AuditLogEntry) bool, limit, offset int) []domain.AuditLogEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.AuditLogEntry
	for _, e := range r.s.audit {
		if keep(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	if limit > 0 {
		return page(result, limit, offset)
	}
	return result
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(_ context.Context) (domain.TriageSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		seeded := r.s.defaults
		seeded.UpdatedAt = r.s.now()
		r.s.settings = &seeded
	}
	return *r.s.settings, nil
}

func (r settingsRepo) Update(_ context.Context, settings domain.TriageSettings) (domain.TriageSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	settings.UpdatedAt = r.s.now()
	r.s.settings = &settings
	return settings, nil
}
