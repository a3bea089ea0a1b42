package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SignalPipeline/internal/dedup"
	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/gate"
	"SignalPipeline/internal/logging"
	"SignalPipeline/internal/ports"
)

const (
	maxScoreConcurrency = 4
	releaseTimeout      = 5 * time.Second
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Notifier and Lock are optional.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Repository ports.ArticleRepository
	Scorer     ports.Scorer
	Notifier   ports.Notifier
	Lock       ports.RunLock

	Policy           gate.Policy
	Instructions     string
	ScoreConcurrency int
	MaxPosts         int
	SourceCount      int

	Logger   *slog.Logger
	Now      func() time.Time
	NewRunID func() string
}

// Pipeline implements the ingest, score, gate and persist workflow.
type Pipeline struct {
	source     ports.ArticleSource
	repository ports.ArticleRepository
	scorer     ports.Scorer
	notifier   ports.Notifier
	lock       ports.RunLock

	policy       gate.Policy
	instructions string
	concurrency  int
	maxPosts     int
	sourceCount  int

	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: source is required")
	case deps.Repository == nil:
		return nil, errors.New("pipeline: repository is required")
	case deps.Scorer == nil:
		return nil, errors.New("pipeline: scorer is required")
	case strings.TrimSpace(deps.Instructions) == "":
		return nil, errors.New("pipeline: scoring instructions are empty")
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		source:       deps.Source,
		repository:   deps.Repository,
		scorer:       deps.Scorer,
		notifier:     deps.Notifier,
		lock:         deps.Lock,
		policy:       deps.Policy,
		instructions: deps.Instructions,
		concurrency:  min(max(deps.ScoreConcurrency, 1), maxScoreConcurrency),
		maxPosts:     max(deps.MaxPosts, 0),
		sourceCount:  deps.SourceCount,
		logger:       deps.Logger,
		now:          deps.Now,
		newRunID:     deps.NewRunID,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	return p, nil
}

// Run executes one batch. Per-item failures are logged and counted in the
// report; only a failed existence lookup or a cancelled context returns an error.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	started := p.now()
	report := domain.RunReport{RunID: p.newRunID(), Sources: p.sourceCount}
	log := p.logger.With("run_id", report.RunID)
	finish := func() domain.RunReport {
		report.Duration = p.now().Sub(started)
		return report
	}

	if p.lock != nil {
		release, acquired, err := p.lock.Acquire(ctx)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, continuing without it", "error", err)
		case !acquired:
			log.Info("another run holds the lock, skipping")
			report.Skipped = true
			return finish(), nil
		default:
			defer func() {
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
				defer cancel()
				if err := release(relCtx); err != nil {
					log.Warn("release run lock", "error", err)
				}
			}()
		}
	}

	candidates, failed := p.source.FetchAll(ctx)
	report.FailedSources = failed
	report.Fetched = len(candidates)
	log.Info("fetched candidates", "candidates", len(candidates), "failed_sources", failed)

	keyed, invalid := dedup.Assign(candidates)
	for _, c := range invalid {
		log.Warn("dropping candidate with unusable url", "source", c.Source.Name, "url", c.URL)
	}

	known, err := p.repository.ExistingIDs(ctx, dedup.IDs(keyed))
	if err != nil {
		return finish(), fmt.Errorf("load existing ids: %w", err)
	}
	fresh := dedup.Filter(keyed, known)
	report.New = len(fresh)
	log.Info("deduplicated candidates", "unique", len(keyed), "new", len(fresh))

	verdicts := p.scoreAll(ctx, log, fresh)

	var published []domain.Article
	for i, item := range fresh {
		if ctx.Err() != nil {
			break
		}
		v := verdicts[i]
		if v == nil {
			report.ScoreFailures++
			continue
		}
		report.Scored++

		article := p.policy.Finalize(item.ID, item.Candidate, *v, p.now())
		if err := article.Validate(); err != nil {
			report.SaveFailures++
			log.Warn("article rejected before write", "id", item.ID, "url", item.Candidate.URL, "error", err)
			continue
		}
		if err := p.repository.Upsert(ctx, article); err != nil {
			report.SaveFailures++
			log.Warn("persist article", "id", item.ID, "url", item.Candidate.URL, "error", err)
			continue
		}
		report.Saved++

		switch article.Status {
		case domain.StatusPublished:
			report.Published++
			published = append(published, article)
		case domain.StatusDraft:
			report.Drafted++
		case domain.StatusRejected:
			report.Rejected++
		}
		log.Debug("article stored", "id", article.ID, "score", article.Score, "status", article.Status)
	}

	if err := ctx.Err(); err != nil {
		return finish(), fmt.Errorf("run cancelled: %w", err)
	}

	report.Notified = p.notify(ctx, log, published)

	finish()
	log.Info("run finished",
		"sources", report.Sources,
		"failed_sources", report.FailedSources,
		"fetched", report.Fetched,
		"new", report.New,
		"scored", report.Scored,
		"score_failures", report.ScoreFailures,
		"published", report.Published,
		"drafted", report.Drafted,
		"rejected", report.Rejected,
		"saved", report.Saved,
		"save_failures", report.SaveFailures,
		"notified", report.Notified,
		"duration", report.Duration,
	)
	return report, nil
}

// scoreAll returns one verdict per item, nil where scoring failed.
func (p *Pipeline) scoreAll(ctx context.Context, log *slog.Logger, items []dedup.Keyed) []*domain.Verdict {
	verdicts := make([]*domain.Verdict, len(items))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := p.scorer.Score(ctx, item.Candidate, p.instructions)
			if err != nil {
				log.Warn("score candidate", "id", item.ID, "url", item.Candidate.URL, "source", item.Candidate.Source.Name, "error", err)
				return nil
			}
			verdicts[i] = &v
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}
