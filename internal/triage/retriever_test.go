package triage

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	"github.com/spec-kit/helpdesk-triage/internal/repository/memory"
)

// tagOnlyArticles finds nothing by text and records tag lookups.
type tagOnlyArticles struct {
	repository.ArticleRepository
	byTag    []domain.Article
	tagCalls []string
}

func (s *tagOnlyArticles) Search(context.Context, string, repository.ArticleQuery) ([]domain.Article, error) {
	return nil, nil
}

func (s *tagOnlyArticles) FindByTag(_ context.Context, tag string, _ repository.ArticleQuery) ([]domain.Article, error) {
	s.tagCalls = append(s.tagCalls, tag)
	return s.byTag, nil
}

func TestSearchTerms(t *testing.T) {
	ticket := &domain.Ticket{
		Title:       "Cannot login to account",
		Description: "I get a 404 error every time I try to log in",
	}
	assert.Equal(t,
		[]string{"tech", "Cannot", "login", "get", "404", "error"},
		SearchTerms(ticket, domain.CategoryTech),
	)
}

func TestRetrieveRanksPublishedArticles(t *testing.T) {
	f := newFixture(t)
	login := f.addArticle(t, "Troubleshooting Login Issues", "Reset your password if login fails.", domain.ArticleStatusPublished, "tech", "login")
	f.addArticle(t, "Login draft", "Unpublished login notes", domain.ArticleStatusDraft, "tech", "login")
	f.addArticle(t, "Refund policy", "How refunds work", domain.ArticleStatusPublished, "billing")

	ticket := &domain.Ticket{Title: "Cannot login to account", Description: "I get a 404 error every time I try to log in"}
	got := NewKBRetriever(f.store.Articles(), nil, f.metrics).Retrieve(context.Background(), ticket, Classification{Category: domain.CategoryTech})

	require.NoError(t, got.Err)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, login.ID, got.Articles[0].ID)
	assert.Equal(t, "Reset your password if login fails.", got.Articles[0].BodySnippet)
	assert.Equal(t, "tech Cannot login get 404 error", got.Query)
}

func TestRetrieveFallsBackToCategoryTag(t *testing.T) {
	articles := &tagOnlyArticles{byTag: []domain.Article{
		{ID: "a1", Title: "Shipping times", Status: domain.ArticleStatusPublished},
		{ID: "a1", Title: "Shipping times", Status: domain.ArticleStatusPublished},
		{ID: "a2", Title: "Draft", Status: domain.ArticleStatusDraft},
	}}
	ticket := &domain.Ticket{Title: "Where is it", Description: "Nothing has arrived"}

	got := NewKBRetriever(articles, nil, nil).Retrieve(context.Background(), ticket, Classification{Category: domain.CategoryShipping})
	require.NoError(t, got.Err)
	assert.Equal(t, []string{"shipping"}, articles.tagCalls)
	require.Len(t, got.Articles, 1)
	assert.Equal(t, "a1", got.Articles[0].ID)
}

func TestRetrieveSkipsTagFallbackForOther(t *testing.T) {
	articles := &tagOnlyArticles{}
	got := NewKBRetriever(articles, nil, nil).Retrieve(context.Background(), &domain.Ticket{Title: "hello"}, Classification{Category: domain.CategoryOther})
	require.NoError(t, got.Err)
	assert.Empty(t, got.Articles)
	assert.Empty(t, articles.tagCalls)
}

func TestRetrieveSwallowsStoreErrors(t *testing.T) {
	f := newFixture(t)
	got := NewKBRetriever(failingArticles{}, nil, f.metrics).Retrieve(context.Background(), &domain.Ticket{Title: "refund please"}, Classification{Category: domain.CategoryBilling})

	assert.ErrorIs(t, got.Err, errStoreDown)
	assert.NotNil(t, got.Articles)
	assert.Empty(t, got.Articles)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RetrievalFailures), 1e-9)
}

func TestRetrieveBoundedPublishedProperty(t *testing.T) {
	words := []string{"login", "refund", "package", "error", "invoice", "tracking", "password", "delivery"}
	rapid.Check(t, func(t *rapid.T) {
		store := memory.NewStore(testDefaults)
		articles := store.Articles()
		n := rapid.IntRange(0, 12).Draw(t, "articles")
		for i := 0; i < n; i++ {
			status := rapid.SampledFrom([]domain.ArticleStatus{domain.ArticleStatusDraft, domain.ArticleStatusPublished}).Draw(t, "status")
			a := &domain.Article{
				Title:  fmt.Sprintf("%s guide %d", rapid.SampledFrom(words).Draw(t, "title"), i),
				Body:   rapid.SampledFrom(words).Draw(t, "body"),
				Tags:   []string{string(rapid.SampledFrom(domain.Categories).Draw(t, "tag"))},
				Status: status,
			}
			if err := articles.Create(context.Background(), a); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		ticket := &domain.Ticket{
			Title:       rapid.SampledFrom(words).Draw(t, "ticketTitle"),
			Description: rapid.String().Draw(t, "description"),
		}
		cls := Classification{Category: rapid.SampledFrom(domain.Categories).Draw(t, "category")}

		got := NewKBRetriever(articles, nil, nil).Retrieve(context.Background(), ticket, cls)
		if got.Err != nil {
			t.Fatalf("unexpected error: %v", got.Err)
		}
		if len(got.Articles) > maxCandidates {
			t.Fatalf("got %d articles", len(got.Articles))
		}
		seen := map[string]bool{}
		for _, c := range got.Articles {
			if seen[c.ID] {
				t.Fatalf("duplicate article %s", c.ID)
			}
			seen[c.ID] = true
			stored, err := articles.GetByID(context.Background(), c.ID)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if stored.Status != domain.ArticleStatusPublished {
				t.Fatalf("article %s is %s", c.ID, stored.Status)
			}
		}
	})
}
