package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

func TestCreateArticleDefaultsToDraft(t *testing.T) {
	svc := NewArticleService(newStore().Articles())
	ctx := context.Background()

	article, err := svc.CreateArticle(ctx, ArticleCreateInput{Title: "Refunds", Body: "How refunds work", Tags: []string{"Billing"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ArticleStatusDraft, article.Status)
	assert.Equal(t, []string{"billing"}, article.Tags)

	found, err := svc.SearchArticles(ctx, "refunds", 5)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = svc.CreateArticle(ctx, ArticleCreateInput{Title: "", Body: "x", Status: "archived"})
	de := requireDomainError(t, err, "VALIDATION_FAILED")
	assert.Contains(t, de.Details, "title")
	assert.Contains(t, de.Details, "status")

	_, err = svc.GetArticle(ctx, "missing")
	requireDomainError(t, err, "NOT_FOUND")
}
