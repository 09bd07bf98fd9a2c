package domain

import "time"

// ArticleStatus is the publication state of a KB article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
)

// Article is a knowledge-base entry.
type Article struct {
	ID        string
	Title     string
	Body      string
	Tags      []string
	Status    ArticleStatus
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snippet returns at most n runes of the body.
func (a *Article) Snippet(n int) string {
	runes := []rune(a.Body)
	if len(runes) <= n {
		return a.Body
	}
	return string(runes[:n])
}

// CandidateArticle is an article surfaced by retrieval; slice order is rank.
type CandidateArticle struct {
	ID          string
	Title       string
	BodySnippet string
	Tags        []string
}
