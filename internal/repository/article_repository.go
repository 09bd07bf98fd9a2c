package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// ArticleQuery restricts article lookups.
type ArticleQuery struct {
	Status domain.ArticleStatus
	Limit  int
}

// ArticleRepository is the knowledge-base Article Store.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	// Search returns articles ranked by full-text relevance; an empty query
	// returns the most recent articles instead.
	Search(ctx context.Context, query string, opts ArticleQuery) ([]domain.Article, error)
	FindByTag(ctx context.Context, tag string, opts ArticleQuery) ([]domain.Article, error)
}

type articleRepository struct {
	pool *pgxpool.Pool
}

// NewArticleRepository builds repository.
func NewArticleRepository(pool *pgxpool.Pool) ArticleRepository {
	return &articleRepository{pool: pool}
}

var searchTermPattern = regexp.MustCompile(`[a-z0-9]+`)

// SearchTerms lower-cases text and splits it into alphanumeric runs.
func SearchTerms(text string) []string {
	return searchTermPattern.FindAllString(strings.ToLower(text), -1)
}

const articleColumns = `id, title, body, tags, status, created_by, created_at, updated_at`

func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	tags := normalizeTags(article.Tags)
	const query = `
        INSERT INTO articles (title, body, tags, status, created_by, search_vector)
        VALUES ($1,$2,$3,$4,$5,
            setweight(to_tsvector('english', $1), 'A') ||
            setweight(to_tsvector('english', array_to_string($3::text[], ' ')), 'B') ||
            setweight(to_tsvector('english', $2), 'C'))
        RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, query,
		article.Title,
		article.Body,
		tags,
		article.Status,
		article.CreatedBy,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt); err != nil {
		return err
	}
	article.Tags = tags
	return nil
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

func (r *articleRepository) Search(ctx context.Context, query string, opts ArticleQuery) ([]domain.Article, error) {
	opts = withArticleDefaults(opts, 10)
	terms := SearchTerms(query)
	if len(terms) == 0 {
		sql := `SELECT ` + articleColumns + ` FROM articles WHERE status=$1 ORDER BY created_at DESC LIMIT $2`
		rows, err := r.pool.Query(ctx, sql, opts.Status, opts.Limit)
		if err != nil {
			return nil, err
		}
		return scanArticles(rows)
	}

	// Terms are OR-ed so any matching word contributes to the rank.
	sql := `
        SELECT ` + articleColumns + `
        FROM articles, to_tsquery('english', $2) AS q
        WHERE status=$1 AND search_vector @@ q
        ORDER BY ts_rank(search_vector, q) DESC, created_at DESC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, sql, opts.Status, strings.Join(terms, " | "), opts.Limit)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

func (r *articleRepository) FindByTag(ctx context.Context, tag string, opts ArticleQuery) ([]domain.Article, error) {
	opts = withArticleDefaults(opts, 10)
	sql := `SELECT ` + articleColumns + ` FROM articles
        WHERE status=$1 AND $2 = ANY(tags)
        ORDER BY created_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, sql, opts.Status, strings.ToLower(strings.TrimSpace(tag)), opts.Limit)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

func withArticleDefaults(opts ArticleQuery, limit int) ArticleQuery {
	if opts.Status == "" {
		opts.Status = domain.ArticleStatusPublished
	}
	if opts.Limit <= 0 {
		opts.Limit = limit
	}
	return opts
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func scanArticles(rows pgx.Rows) ([]domain.Article, error) {
	defer rows.Close()
	var result []domain.Article
	for rows.Next() {
		var article domain.Article
		if err := rows.Scan(
			&article.ID,
			&article.Title,
			&article.Body,
			&article.Tags,
			&article.Status,
			&article.CreatedBy,
			&article.CreatedAt,
			&article.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return result, nil
}
