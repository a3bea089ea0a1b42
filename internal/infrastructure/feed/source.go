package feed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/ports"
)

// SourceFetcher is the single-feed step; *Fetcher implements it.
type SourceFetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.Candidate, error)
}

// RegistrySource implements ArticleSource over a fixed source registry.
type RegistrySource struct {
	fetcher     SourceFetcher
	sources     []domain.Source
	concurrency int
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*RegistrySource)(nil)

// NewRegistrySource wires the fetcher with config-defined sources.
func NewRegistrySource(fetcher SourceFetcher, sources []domain.Source, concurrency int, log *slog.Logger) *RegistrySource {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RegistrySource{
		fetcher:     fetcher,
		sources:     append([]domain.Source(nil), sources...),
		concurrency: concurrency,
		logger:      log,
	}
}

// FetchAll fetches every source with bounded concurrency. A failing source is
// logged and counted; it never aborts the others. Candidates keep registry order.
func (s *RegistrySource) FetchAll(ctx context.Context) ([]domain.Candidate, int) {
	perSource := make([][]domain.Candidate, len(s.sources))
	failed := make([]bool, len(s.sources))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, src := range s.sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed[i] = true
				return nil
			}
			items, err := s.fetcher.Fetch(ctx, src)
			if err != nil {
				failed[i] = true
				s.warn("source fetch failed", "source", src.Name, "url", src.URL, "error", err)
				return nil
			}
			perSource[i] = items
			s.debug("source fetched", "source", src.Name, "items", len(items))
			return nil
		})
	}
	_ = g.Wait()

	var (
		aggregated  []domain.Candidate
		failedCount int
	)
	for i := range s.sources {
		if failed[i] {
			failedCount++
			continue
		}
		aggregated = append(aggregated, perSource[i]...)
	}
	s.debug("registry fetch done", "sources", len(s.sources), "failed", failedCount, "candidates", len(aggregated))
	return aggregated, failedCount
}

func (s *RegistrySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *RegistrySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
