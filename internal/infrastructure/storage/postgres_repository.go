package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/ports"
)

//go:embed schema.sql
var schema string

const articlesTable = "articles"

var articleColumns = []string{
	"id", "url", "source_name", "original_title", "category", "score", "importance",
	"title_ja", "title_en", "summary_ja", "summary_en", "key_insight", "tags",
	"status", "published_at", "processed_at",
}

// Only the draft state may move; published and rejected rows keep their status.
const upsertSuffix = `ON CONFLICT (id) DO UPDATE SET
    title_ja = EXCLUDED.title_ja,
    title_en = EXCLUDED.title_en,
    summary_ja = EXCLUDED.summary_ja,
    summary_en = EXCLUDED.summary_en,
    key_insight = EXCLUDED.key_insight,
    score = EXCLUDED.score,
    importance = EXCLUDED.importance,
    category = EXCLUDED.category,
    tags = EXCLUDED.tags,
    processed_at = EXCLUDED.processed_at,
    status = CASE WHEN articles.status = 'draft' THEN EXCLUDED.status ELSE articles.status END,
    updated_at = NOW()`

// PostgresRepository persists scored articles into Postgres.
type PostgresRepository struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

var (
	_ ports.ArticleRepository = (*PostgresRepository)(nil)
	_ ports.ArticleReader     = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ExistingIDs returns a map with IDs that already exist in storage.
func (r *PostgresRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.psql.Select("id").
		From(articlesTable).
		Where("id = ANY(?)", pq.Array(ids)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build existing query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// Upsert validates the article and writes it keyed by id.
func (r *PostgresRepository) Upsert(ctx context.Context, a domain.Article) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}

	query, args, err := r.psql.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			a.ID, a.URL, a.SourceName, a.OriginalTitle, string(a.Category), a.Score, string(a.Importance),
			a.TitleJA, a.TitleEN, a.SummaryJA, a.SummaryEN, a.KeyInsight, pq.Array(tags),
			string(a.Status), a.PublishedAt, a.ProcessedAt,
		).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %s: %w", a.ID, err)
	}
	return nil
}

// ListPublished returns the newest published articles.
func (r *PostgresRepository) ListPublished(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 20
	}

	cols := append(append([]string(nil), articleColumns...), "created_at", "updated_at")
	query, args, err := r.psql.Select(cols...).
		From(articlesTable).
		Where(sq.Eq{"status": string(domain.StatusPublished)}).
		OrderBy("processed_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		var (
			a                            domain.Article
			category, importance, status string
			publishedAt                  sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.URL, &a.SourceName, &a.OriginalTitle, &category, &a.Score, &importance,
			&a.TitleJA, &a.TitleEN, &a.SummaryJA, &a.SummaryEN, &a.KeyInsight, pq.Array(&a.Tags),
			&status, &publishedAt, &a.ProcessedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Category = domain.Category(category)
		a.Importance = domain.Importance(importance)
		a.Status = domain.Status(status)
		if publishedAt.Valid {
			a.PublishedAt = publishedAt.Time
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
