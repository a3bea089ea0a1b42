package ports

import (
	"context"
	"time"

	"SignalPipeline/internal/domain"
)

// ArticleSource pulls candidates from every configured feed. Per-source
// failures are absorbed; the returned count reports how many sources failed.
type ArticleSource interface {
	FetchAll(ctx context.Context) (candidates []domain.Candidate, failedSources int)
}

// ArticleRepository persists scored articles and answers dedup lookups.
type ArticleRepository interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, article domain.Article) error
}

// ArticleReader serves the curated feed back out of storage.
type ArticleReader interface {
	ListPublished(ctx context.Context, limit int) ([]domain.Article, error)
}

// Scorer asks an external reasoning service for a verdict on one candidate.
type Scorer interface {
	Score(ctx context.Context, candidate domain.Candidate, instructions string) (domain.Verdict, error)
}

// Notifier streams announcements to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunLock prevents two pipeline runs from overlapping.
type RunLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
