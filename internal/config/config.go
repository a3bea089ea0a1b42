package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/gate"
)

// ErrInvalidConfig marks configuration that must abort the run before any network call.
var ErrInvalidConfig = errors.New("invalid config")

const (
	defaultTimezone = "UTC"
	maxFetchTimeout = 15 * time.Second
	maxScoreWorkers = 4

	configPathEnv       = "SIGNAL_PIPELINE_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	databaseDSNEnv      = "DATABASE_DSN"
	providerEnv         = "SCORING_PROVIDER"
	modelEnv            = "SCORING_MODEL"
	instructionsFileEnv = "SCORING_INSTRUCTIONS_FILE"
	anthropicKeyEnv     = "ANTHROPIC_API_KEY"
	openAIKeyEnv        = "OPENAI_API_KEY"
	scoringKeyEnv       = "SCORING_API_KEY"
	redisAddrEnv        = "REDIS_ADDR"
	redisPasswordEnv    = "REDIS_PASSWORD"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Scoring providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderHTTP      = "http"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Scoring       ScoringConfig      `yaml:"scoring"`
	Gate          gate.Policy        `yaml:"gate"`
	Redis         RedisConfig        `yaml:"redis"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []domain.Source    `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	Migrate      bool   `yaml:"migrate"`
}

// SchedulerConfig defines when the pipeline should run in cron mode.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetchConfig bounds feed retrieval.
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	MaxItemsPerSource int           `yaml:"maxItemsPerSource"`
	UserAgent         string        `yaml:"userAgent"`
}

// ScoringConfig defines how to reach the external reasoning service.
type ScoringConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	Endpoint         string        `yaml:"endpoint"`
	APIKey           string        `yaml:"apiKey"`
	MaxTokens        int64         `yaml:"maxTokens"`
	Timeout          time.Duration `yaml:"timeout"`
	Concurrency      int           `yaml:"concurrency"`
	Instructions     string        `yaml:"instructions"`
	InstructionsFile string        `yaml:"instructionsFile"`
}

// RedisConfig enables the overlapping-run lock when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTtl"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	MaxPosts int            `yaml:"maxPosts"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates the result. Any error is fatal for the run.
func Load() (Config, error) {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit config path; an empty path means defaults only.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
		// Decoding over the defaults keeps every key the file leaves out;
		// a sources list in the file replaces the default registry wholesale.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyBounds()
	cfg.bindTimezone()

	if err := cfg.loadInstructions(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(providerEnv); v != "" {
		c.Scoring.Provider = v
	}
	c.Scoring.Provider = strings.ToLower(strings.TrimSpace(c.Scoring.Provider))
	if v := os.Getenv(modelEnv); v != "" {
		c.Scoring.Model = v
	}
	if v := os.Getenv(instructionsFileEnv); v != "" {
		c.Scoring.InstructionsFile = v
	}
	if c.Scoring.APIKey == "" {
		switch c.Scoring.Provider {
		case ProviderAnthropic:
			c.Scoring.APIKey = os.Getenv(anthropicKeyEnv)
		case ProviderOpenAI:
			c.Scoring.APIKey = os.Getenv(openAIKeyEnv)
		case ProviderHTTP:
			c.Scoring.APIKey = os.Getenv(scoringKeyEnv)
		}
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) applyBounds() {
	if c.Fetch.Timeout <= 0 || c.Fetch.Timeout > maxFetchTimeout {
		c.Fetch.Timeout = maxFetchTimeout
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = 1
	}
	if c.Fetch.MaxItemsPerSource <= 0 {
		c.Fetch.MaxItemsPerSource = defaultConfig().Fetch.MaxItemsPerSource
	}
	if c.Scoring.Concurrency <= 0 {
		c.Scoring.Concurrency = 1
	}
	if c.Scoring.Concurrency > maxScoreWorkers {
		log.Printf("config: scoring concurrency %d capped at %d", c.Scoring.Concurrency, maxScoreWorkers)
		c.Scoring.Concurrency = maxScoreWorkers
	}
	if c.Scoring.Timeout <= 0 {
		c.Scoring.Timeout = defaultConfig().Scoring.Timeout
	}
	if c.Notifications.MaxPosts < 0 {
		c.Notifications.MaxPosts = 0
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func (c *Config) loadInstructions() error {
	path := strings.TrimSpace(c.Scoring.InstructionsFile)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read scoring instructions %s: %v", ErrInvalidConfig, path, err)
	}
	c.Scoring.Instructions = string(raw)
	return nil
}

// Validate checks everything that must hold before the first network call.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: source registry is empty", ErrInvalidConfig)
	}
	seen := make(map[string]string, len(c.Sources))
	for i, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("%w: source #%d: %v", ErrInvalidConfig, i+1, err)
		}
		key := strings.ToLower(strings.TrimRight(strings.TrimSpace(src.URL), "/"))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: source %s duplicates endpoint of %s", ErrInvalidConfig, src.Name, prev)
		}
		seen[key] = src.Name
	}

	if strings.TrimSpace(c.Scoring.Instructions) == "" {
		return fmt.Errorf("%w: scoring instructions are empty", ErrInvalidConfig)
	}
	switch c.Scoring.Provider {
	case ProviderAnthropic, ProviderOpenAI:
		if c.Scoring.APIKey == "" {
			return fmt.Errorf("%w: %s provider requires an api key", ErrInvalidConfig, c.Scoring.Provider)
		}
	case ProviderHTTP:
		if c.Scoring.Endpoint == "" {
			return fmt.Errorf("%w: http provider requires an endpoint", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown scoring provider %q", ErrInvalidConfig, c.Scoring.Provider)
	}

	if err := c.Gate.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database dsn is empty", ErrInvalidConfig)
	}
	return nil
}

// String renders the non-secret parts of the config for startup logs.
func (c Config) String() string {
	return "sources=" + strconv.Itoa(len(c.Sources)) +
		" provider=" + c.Scoring.Provider +
		" model=" + c.Scoring.Model +
		" fetch_concurrency=" + strconv.Itoa(c.Fetch.Concurrency) +
		" score_concurrency=" + strconv.Itoa(c.Scoring.Concurrency) +
		" lock=" + strconv.FormatBool(c.Redis.Addr != "") +
		" telegram=" + strconv.FormatBool(c.Notifications.Telegram.Enabled())
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{MaxOpenConns: 5, Migrate: true},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: defaultTimezone, location: tz},
		Fetch: FetchConfig{
			Timeout:           maxFetchTimeout,
			Concurrency:       4,
			MaxItemsPerSource: 5,
			UserAgent:         "SignalPipeline/1.0",
		},
		Scoring: ScoringConfig{
			Provider:     ProviderAnthropic,
			Model:        "claude-sonnet-4-5",
			MaxTokens:    1024,
			Timeout:      60 * time.Second,
			Concurrency:  1,
			Instructions: DefaultInstructions,
		},
		Gate:  gate.DefaultPolicy(),
		Redis: RedisConfig{LockKey: "signal:pipeline:lock", LockTTL: 30 * time.Minute},
		Notifications: NotificationConfig{
			MaxPosts: 3,
		},
		Sources: DefaultSources(),
	}
}
