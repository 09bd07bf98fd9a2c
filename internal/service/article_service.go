package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-triage/pkg/util"
)

// ArticleCreateInput describes a new knowledge-base article.
type ArticleCreateInput struct {
	Title     string
	Body      string
	Tags      []string
	Status    domain.ArticleStatus
	CreatedBy string
}

// ArticleService manages knowledge-base articles.
type ArticleService struct {
	articles repository.ArticleRepository
}

// NewArticleService constructs the service.
func NewArticleService(articles repository.ArticleRepository) *ArticleService {
	return &ArticleService{articles: articles}
}

// CreateArticle stores a draft or published article.
func (s *ArticleService) CreateArticle(ctx context.Context, in ArticleCreateInput) (*domain.Article, error) {
	article := &domain.Article{
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimSpace(in.Body),
		Tags:      in.Tags,
		Status:    in.Status,
		CreatedBy: strings.TrimSpace(in.CreatedBy),
	}
	if article.Status == "" {
		article.Status = domain.ArticleStatusDraft
	}
	details := map[string]any{}
	if article.Title == "" {
		details["title"] = "required"
	}
	if article.Body == "" {
		details["body"] = "required"
	}
	if article.Status != domain.ArticleStatusDraft && article.Status != domain.ArticleStatusPublished {
		details["status"] = "must be draft or published"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid article", details)
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// GetArticle returns an article by id.
func (s *ArticleService) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("article", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// SearchArticles runs a published-only relevance search.
func (s *ArticleService) SearchArticles(ctx context.Context, query string, limit int) ([]domain.Article, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	articles, err := s.articles.Search(ctx, query, repository.ArticleQuery{Status: domain.ArticleStatusPublished, Limit: limit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}
