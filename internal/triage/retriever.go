package triage

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
)

const (
	maxCandidates    = 3
	searchLimit      = 5
	titleTermCount   = 3
	descTermCount    = 5
	minTermLength    = 3
	snippetRuneCount = 150
)

// Retrieval is the output of the retrieve stage. Err is set when the knowledge
// base failed; Articles is then empty and the run continues.
type Retrieval struct {
	Articles []domain.CandidateArticle
	Query    string
	Terms    []string
	Err      error
}

// KBRetriever looks up published articles relevant to a ticket.
type KBRetriever struct {
	articles repository.ArticleRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewKBRetriever builds a retriever over articles.
func NewKBRetriever(articles repository.ArticleRepository, logger *zap.Logger, metrics *observability.Metrics) *KBRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KBRetriever{articles: articles, logger: logger, metrics: metrics}
}

// Retrieve returns at most three published candidates ranked by relevance.
// Store failures never propagate.
func (r *KBRetriever) Retrieve(ctx context.Context, ticket *domain.Ticket, cls Classification) Retrieval {
	terms := SearchTerms(ticket, cls.Category)
	result := Retrieval{Query: strings.Join(terms, " "), Terms: terms, Articles: []domain.CandidateArticle{}}

	found, err := r.lookup(ctx, result.Query, cls.Category)
	if err != nil {
		r.logger.Warn("kb retrieval failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("query", result.Query),
			zap.Error(err),
		)
		r.metrics.RecordRetrievalFailure()
		result.Err = err
		return result
	}

	seen := make(map[string]struct{}, len(found))
	for _, a := range found {
		if a.Status != domain.ArticleStatusPublished {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		result.Articles = append(result.Articles, domain.CandidateArticle{
			ID:          a.ID,
			Title:       a.Title,
			BodySnippet: a.Snippet(snippetRuneCount),
			Tags:        append([]string(nil), a.Tags...),
		})
		if len(result.Articles) == maxCandidates {
			break
		}
	}
	return result
}

func (r *KBRetriever) lookup(ctx context.Context, query string, category domain.Category) ([]domain.Article, error) {
	published := repository.ArticleQuery{Status: domain.ArticleStatusPublished, Limit: searchLimit}
	found, err := r.articles.Search(ctx, query, published)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 || category == domain.CategoryOther {
		return found, nil
	}
	published.Limit = maxCandidates
	return r.articles.FindByTag(ctx, string(category), published)
}

// SearchTerms builds the retrieval query terms: the category, the first words
// of the title and the first words of the description. Short words are dropped.
func SearchTerms(ticket *domain.Ticket, category domain.Category) []string {
	candidates := []string{string(category)}
	candidates = append(candidates, firstFields(ticket.Title, titleTermCount)...)
	candidates = append(candidates, firstFields(ticket.Description, descTermCount)...)

	terms := make([]string, 0, len(candidates))
	for _, term := range candidates {
		if utf8.RuneCountInString(term) >= minTermLength {
			terms = append(terms, term)
		}
	}
	return terms
}

func firstFields(s string, n int) []string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return fields
}
