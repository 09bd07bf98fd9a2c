package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	"github.com/spec-kit/helpdesk-triage/internal/repository/memory"
)

var errStoreDown = errors.New("store unavailable")

var testDefaults = domain.TriageSettings{AutoCloseEnabled: true, ConfidenceThreshold: 0.78, SLAHours: 24}

// failingArticles fails every lookup.
type failingArticles struct {
	repository.ArticleRepository
}

func (failingArticles) Search(context.Context, string, repository.ArticleQuery) ([]domain.Article, error) {
	return nil, errStoreDown
}

func (failingArticles) FindByTag(context.Context, string, repository.ArticleQuery) ([]domain.Article, error) {
	return nil, errStoreDown
}

// blockingArticles waits for the deadline.
type blockingArticles struct {
	repository.ArticleRepository
}

func (blockingArticles) Search(ctx context.Context, _ string, _ repository.ArticleQuery) ([]domain.Article, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingAudit drops every entry.
type failingAudit struct{}

func (failingAudit) Append(context.Context, *domain.AuditLogEntry) error { return errStoreDown }

func (failingAudit) ListByTrace(context.Context, string) ([]domain.AuditLogEntry, error) {
	return nil, errStoreDown
}

func (failingAudit) ListByTicket(context.Context, string, int, int) ([]domain.AuditLogEntry, error) {
	return nil, errStoreDown
}

// failingSuggestions rejects writes.
type failingSuggestions struct {
	repository.SuggestionRepository
}

func (failingSuggestions) Create(context.Context, *domain.AgentSuggestion) error { return errStoreDown }

// blockingClassifier waits for the deadline.
type blockingClassifier struct{}

func (blockingClassifier) Classify(ctx context.Context, _ string) (Classification, error) {
	<-ctx.Done()
	return Classification{}, ctx.Err()
}

type fixture struct {
	store    *memory.Store
	registry *prometheus.Registry
	metrics  *observability.Metrics
	deps     Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(testDefaults)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	classifier := NewKeywordClassifier(fixedRandom(0.5))
	return &fixture{
		store:    store,
		registry: registry,
		metrics:  metrics,
		deps: Dependencies{
			Tickets:    store.Tickets(),
			Settings:   store.Settings(),
			Classifier: classifier,
			Retriever:  NewKBRetriever(store.Articles(), nil, metrics),
			Drafter:    NewTemplateDrafter(classifier),
			Decider:    NewDecisionEngine(store.Tickets(), store.Suggestions()),
			Audit:      NewAuditLogger(store.Audit(), nil, metrics),
			Metrics:    metrics,
		},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return NewOrchestrator(f.deps)
}

func (f *fixture) setSettings(t *testing.T, enabled bool, threshold float64) {
	t.Helper()
	_, err := f.store.Settings().Update(context.Background(), domain.TriageSettings{
		AutoCloseEnabled:    enabled,
		ConfidenceThreshold: threshold,
		SLAHours:            24,
	})
	require.NoError(t, err)
}

func (f *fixture) addArticle(t *testing.T, title, body string, status domain.ArticleStatus, tags ...string) *domain.Article {
	t.Helper()
	a := &domain.Article{Title: title, Body: body, Tags: tags, Status: status}
	require.NoError(t, f.store.Articles().Create(context.Background(), a))
	return a
}

func (f *fixture) addTicket(t *testing.T, title, description string, category domain.Category) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   "user-1",
	}
	require.NoError(t, f.store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func (f *fixture) auditActions(t *testing.T, traceID string) []domain.AuditAction {
	t.Helper()
	entries, err := f.store.Audit().ListByTrace(context.Background(), traceID)
	require.NoError(t, err)
	actions := make([]domain.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (f *fixture) auditEntry(t *testing.T, traceID string, action domain.AuditAction) domain.AuditLogEntry {
	t.Helper()
	entries, err := f.store.Audit().ListByTrace(context.Background(), traceID)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Action == action {
			return e
		}
	}
	t.Fatalf("no %s entry for trace %s", action, traceID)
	return domain.AuditLogEntry{}
}

var canonicalTrail = []domain.AuditAction{
	domain.ActionTicketCreated,
	domain.ActionAgentClassified,
	domain.ActionKBRetrieved,
	domain.ActionDraftGenerated,
}

// requireValidTrail checks that actions follow the pipeline order, with
// TRIAGE_FAILED allowed only as the final entry.
func requireValidTrail(t *testing.T, actions []domain.AuditAction) {
	t.Helper()
	for i, action := range actions {
		switch {
		case action == domain.ActionTriageFailed:
			require.Equal(t, len(actions)-1, i, "TRIAGE_FAILED must be last: %v", actions)
		case i < len(canonicalTrail):
			require.Equal(t, canonicalTrail[i], action, "unexpected order: %v", actions)
		case i == len(canonicalTrail):
			require.Contains(t, []domain.AuditAction{domain.ActionAutoClosed, domain.ActionAssignedToHuman}, action)
		default:
			t.Fatalf("trail too long: %v", actions)
		}
	}
}
