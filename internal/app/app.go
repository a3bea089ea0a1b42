package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"SignalPipeline/internal/config"
	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/infrastructure/feed"
	"SignalPipeline/internal/infrastructure/llm"
	"SignalPipeline/internal/infrastructure/lock"
	"SignalPipeline/internal/infrastructure/ml"
	"SignalPipeline/internal/infrastructure/scheduler"
	"SignalPipeline/internal/infrastructure/storage"
	"SignalPipeline/internal/infrastructure/telegram"
	"SignalPipeline/internal/logging"
	"SignalPipeline/internal/ports"
	"SignalPipeline/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	redis    *redis.Client
	repo     *storage.PostgresRepository
	pipeline *usecase.Pipeline
}

// New opens connections and builds the pipeline. Nothing is fetched yet.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	repo := storage.NewPostgresRepository(db)

	fetcher := feed.NewFetcher(nil, cfg.Fetch.Timeout, cfg.Fetch.MaxItemsPerSource, cfg.Fetch.UserAgent)
	source := feed.NewRegistrySource(fetcher, cfg.Sources, cfg.Fetch.Concurrency, baseLogger.With("component", "source"))

	scorer, err := newScorer(cfg.Scoring)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var (
		runLock     ports.RunLock
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		runLock = lock.NewRedisLock(redisClient, cfg.Redis.LockKey, cfg.Redis.LockTTL)
	}

	pipeline, err := usecase.NewPipeline(usecase.PipelineDeps{
		Source:           source,
		Repository:       repo,
		Scorer:           scorer,
		Notifier:         notifier,
		Lock:             runLock,
		Policy:           cfg.Gate,
		Instructions:     cfg.Scoring.Instructions,
		ScoreConcurrency: cfg.Scoring.Concurrency,
		MaxPosts:         cfg.Notifications.MaxPosts,
		SourceCount:      len(cfg.Sources),
		Logger:           baseLogger.With("component", "pipeline"),
	})
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		redis:    redisClient,
		repo:     repo,
		pipeline: pipeline,
	}, nil
}

func newScorer(cfg config.ScoringConfig) (ports.Scorer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicScorer(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Timeout), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIScorer(cfg.APIKey, cfg.Model, cfg.Endpoint, cfg.Timeout), nil
	case config.ProviderHTTP:
		return ml.NewClient(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown scoring provider %q", config.ErrInvalidConfig, cfg.Provider)
	}
}

// Close releases database and redis connections.
func (a *Application) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.db.Close()
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	if err := a.prepare(ctx); err != nil {
		return domain.RunReport{}, err
	}
	return a.pipeline.Run(ctx)
}

// Recent renders the newest published articles without running the pipeline.
func (a *Application) Recent(ctx context.Context, limit int) (string, error) {
	if err := a.prepare(ctx); err != nil {
		return "", err
	}
	return usecase.RecentPosts(ctx, a.repo, limit)
}

// RunScheduled keeps running the pipeline on the cron expression until ctx is done.
func (a *Application) RunScheduled(ctx context.Context, expr string) error {
	if expr == "" {
		expr = a.cfg.Scheduler.CronExpression
	}
	driver, err := scheduler.NewCronScheduler(expr, a.cfg.Scheduler.Location())
	if err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}

	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", expr, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

func (a *Application) prepare(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if !a.cfg.Database.Migrate {
		return nil
	}
	if err := a.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
