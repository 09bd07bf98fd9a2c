package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// CreateArticleRequest payload.
type CreateArticleRequest struct {
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Tags      []string             `json:"tags"`
	Status    domain.ArticleStatus `json:"status"`
	CreatedBy string               `json:"created_by"`
}

// ArticleResponse response.
type ArticleResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Tags      []string             `json:"tags"`
	Status    domain.ArticleStatus `json:"status"`
	CreatedBy string               `json:"created_by"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewArticleResponse projects a.
func NewArticleResponse(a *domain.Article) ArticleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return ArticleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		Tags:      tags,
		Status:    a.Status,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
