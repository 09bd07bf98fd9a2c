package triage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

func loginTicket(t *testing.T, f *fixture) *domain.Ticket {
	return f.addTicket(t, "Cannot login to account", "I get a 404 error every time I try to log in", domain.CategoryOther)
}

func TestRunAutoClosesConfidentTicket(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.5)
	article := f.addArticle(t, "Troubleshooting Login Issues", "If login fails, reset your password from the sign-in page.", domain.ArticleStatusPublished, "tech", "login")
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, ActionAutoClosed, res.Action)
	require.NotNil(t, res.Suggestion)
	assert.Equal(t, domain.CategoryTech, res.Suggestion.PredictedCategory)
	assert.Equal(t, []string{article.ID}, res.Suggestion.ArticleIDs)
	assert.GreaterOrEqual(t, res.Suggestion.Confidence, 0.5)
	assert.Contains(t, res.Suggestion.DraftReply, "1. Troubleshooting Login Issues")

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Len(t, stored.Replies, 1)
	assert.Equal(t, res.Suggestion.ID, *stored.SuggestionID)

	assert.Equal(t, []domain.AuditAction{
		domain.ActionTicketCreated,
		domain.ActionAgentClassified,
		domain.ActionKBRetrieved,
		domain.ActionDraftGenerated,
		domain.ActionAutoClosed,
	}, f.auditActions(t, res.TraceID))

	classified := f.auditEntry(t, res.TraceID, domain.ActionAgentClassified)
	assert.Equal(t, "tech", classified.Meta["predictedCategory"])
	assert.Equal(t, "other", classified.Meta["originalCategory"])

	closed := f.auditEntry(t, res.TraceID, domain.ActionAutoClosed)
	assert.Equal(t, res.Suggestion.ID, closed.Meta["suggestionId"])
	assert.Equal(t, 1, closed.Meta["articleReferencesAdded"])

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.TriageRuns.WithLabelValues(string(ActionAutoClosed))), 1e-9)
}

func TestRunAssignsWhenBelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.99)
	f.addArticle(t, "Troubleshooting Login Issues", "Reset your password.", domain.ArticleStatusPublished, "tech", "login")
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, ActionAssignedToHuman, res.Action)
	assert.False(t, res.Suggestion.AutoClosed)

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingHuman, stored.Status)
	assert.Empty(t, stored.Replies)

	actions := f.auditActions(t, res.TraceID)
	requireValidTrail(t, actions)
	assert.Equal(t, domain.ActionAssignedToHuman, actions[len(actions)-1])
}

func TestRunToleratesKnowledgeBaseFailure(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.5)
	f.deps.Retriever = NewKBRetriever(failingArticles{}, nil, f.metrics)
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Suggestion.ArticleIDs)
	assert.Contains(t, res.Suggestion.DraftReply, "I'll connect you with a specialist")

	kb := f.auditEntry(t, res.TraceID, domain.ActionKBRetrieved)
	assert.Equal(t, 0, kb.Meta["articlesFound"])
	assert.Equal(t, errStoreDown.Error(), kb.Meta["error"])
	requireValidTrail(t, f.auditActions(t, res.TraceID))
}

func TestRunMissingTicket(t *testing.T) {
	f := newFixture(t)

	res := f.orchestrator().Run(context.Background(), "does-not-exist")
	assert.False(t, res.Success)
	assert.Equal(t, "Ticket not found", res.Error)
	assert.ErrorIs(t, res.Err, ErrTicketNotFound)
	assert.NotEmpty(t, res.TraceID)

	assert.Equal(t, []domain.AuditAction{domain.ActionTriageFailed}, f.auditActions(t, res.TraceID))
	failed := f.auditEntry(t, res.TraceID, domain.ActionTriageFailed)
	assert.Equal(t, "does-not-exist", failed.TicketID)
	assert.Equal(t, StageLoad, failed.Meta["stage"])
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.TriageRuns.WithLabelValues("failed")), 1e-9)
}

func TestRunWithoutTicketIDWritesNoAudit(t *testing.T) {
	f := newFixture(t)
	res := f.orchestrator().Run(context.Background(), "")
	assert.False(t, res.Success)
	assert.Empty(t, f.auditActions(t, res.TraceID))
}

func TestRunSurvivesAuditFailures(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.5)
	f.deps.Audit = NewAuditLogger(failingAudit{}, nil, f.metrics)
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	require.True(t, res.Success, res.Error)
	assert.InDelta(t, 5, testutil.ToFloat64(f.metrics.AuditWriteFailures), 1e-9)
}

func TestRunClassifierTimeoutIsFatal(t *testing.T) {
	f := newFixture(t)
	f.deps.Classifier = blockingClassifier{}
	f.deps.StageTimeout = 20 * time.Millisecond
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.ErrorIs(t, res.Err, ErrStageTimeout)
	assert.Equal(t, []domain.AuditAction{domain.ActionTicketCreated, domain.ActionTriageFailed}, f.auditActions(t, res.TraceID))
	assert.Equal(t, StageClassify, f.auditEntry(t, res.TraceID, domain.ActionTriageFailed).Meta["stage"])

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestRunRetrievalTimeoutIsTolerated(t *testing.T) {
	f := newFixture(t)
	f.deps.Retriever = NewKBRetriever(blockingArticles{}, nil, f.metrics)
	f.deps.StageTimeout = 20 * time.Millisecond
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	require.True(t, res.Success, res.Error)
	kb := f.auditEntry(t, res.TraceID, domain.ActionKBRetrieved)
	assert.Equal(t, context.DeadlineExceeded.Error(), kb.Meta["error"])
}

func TestRunSuggestionWriteFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.deps.Decider = NewDecisionEngine(f.store.Tickets(), failingSuggestions{})
	ticket := loginTicket(t, f)

	res := f.orchestrator().Run(context.Background(), ticket.ID)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrPersistence)
	actions := f.auditActions(t, res.TraceID)
	requireValidTrail(t, actions)
	assert.Equal(t, domain.ActionTriageFailed, actions[len(actions)-1])
	assert.Equal(t, StageDecide, f.auditEntry(t, res.TraceID, domain.ActionTriageFailed).Meta["stage"])
}

func TestRetriageOfWaitingTicketRelinksSuggestion(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.99)
	ticket := loginTicket(t, f)
	orch := f.orchestrator()

	first := orch.Run(context.Background(), ticket.ID)
	require.True(t, first.Success, first.Error)
	second := orch.Run(context.Background(), ticket.ID)
	require.True(t, second.Success, second.Error)
	assert.NotEqual(t, first.TraceID, second.TraceID)
	assert.NotEqual(t, first.Suggestion.ID, second.Suggestion.ID)

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Suggestion.ID, *stored.SuggestionID)

	latest, err := f.store.Suggestions().LatestForTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Suggestion.ID, latest.ID)
}

func TestRetriageOfResolvedTicketFails(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.5)
	ticket := loginTicket(t, f)
	orch := f.orchestrator()

	require.True(t, orch.Run(context.Background(), ticket.ID).Success)
	res := orch.Run(context.Background(), ticket.ID)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrInvalidTransition)

	stored, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Replies, 1)
}

func TestConcurrentRunsKeepEachTrailValid(t *testing.T) {
	f := newFixture(t)
	f.setSettings(t, true, 0.99)
	orch := f.orchestrator()
	ticket := loginTicket(t, f)

	results := make([]Result, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = orch.Run(context.Background(), ticket.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		requireValidTrail(t, f.auditActions(t, res.TraceID))
		if res.Success {
			succeeded++
			continue
		}
		assert.ErrorIs(t, res.Err, repository.ErrVersionConflict)
	}
	assert.Positive(t, succeeded)
}
