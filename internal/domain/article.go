package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidSource marks a registry entry that cannot be used.
	ErrInvalidSource = errors.New("invalid source")
	// ErrInvalidArticle marks a record that violates the stored schema.
	ErrInvalidArticle = errors.New("invalid article")
)

// Category is the topical bucket of an article.
type Category string

const (
	CategoryResearch Category = "research"
	CategoryProduct  Category = "product"
	CategoryBusiness Category = "business"
	CategoryPolicy   Category = "policy"
)

// Valid reports whether c belongs to the enumeration.
func (c Category) Valid() bool {
	switch c {
	case CategoryResearch, CategoryProduct, CategoryBusiness, CategoryPolicy:
		return true
	}
	return false
}

// ParseCategory normalizes free text into a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Importance grades how urgently an article deserves attention.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceNormal   Importance = "normal"
)

func (i Importance) Valid() bool {
	switch i {
	case ImportanceCritical, ImportanceHigh, ImportanceNormal:
		return true
	}
	return false
}

// ParseImportance normalizes free text into an Importance.
func ParseImportance(s string) (Importance, bool) {
	i := Importance(strings.ToLower(strings.TrimSpace(s)))
	return i, i.Valid()
}

// Status is the publication workflow state. Transitions are forward-only:
// draft -> published or draft -> rejected.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a stored status may be replaced by next.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	return s == StatusDraft && next.Valid()
}

// Source is one registry entry: a feed endpoint with its a priori category and trust.
type Source struct {
	URL      string   `yaml:"url"`
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Trust    int      `yaml:"trust"`
}

// Validate checks a registry entry.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty name for %q", ErrInvalidSource, s.URL)
	}
	u, err := url.Parse(strings.TrimSpace(s.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s: endpoint %q is not an absolute http(s) url", ErrInvalidSource, s.Name, s.URL)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidSource, s.Name, s.Category)
	}
	if s.Trust < 0 || s.Trust > 100 {
		return fmt.Errorf("%w: %s: trust %d outside [0,100]", ErrInvalidSource, s.Name, s.Trust)
	}
	return nil
}

// Candidate is an unscored feed entry that lives only inside one run.
type Candidate struct {
	URL         string
	Title       string
	Body        string
	Source      Source
	PublishedAt time.Time
	FetchedAt   time.Time
}

// Verdict is the structured answer of the scoring service.
type Verdict struct {
	Category   Category
	Score      int
	Importance Importance
	// Skip is set when the service explicitly asked not to publish.
	Skip       bool
	TitleJA    string
	TitleEN    string
	SummaryJA  string
	SummaryEN  string
	KeyInsight string
	Tags       []string
}

// Article is the persisted row.
type Article struct {
	ID            string
	URL           string
	SourceName    string
	OriginalTitle string
	Category      Category
	Score         int
	Importance    Importance
	TitleJA       string
	TitleEN       string
	SummaryJA     string
	SummaryEN     string
	KeyInsight    string
	Tags          []string
	Status        Status
	PublishedAt   time.Time
	ProcessedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate enforces the stored schema invariants before any write.
func (a Article) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidArticle)
	case a.URL == "":
		return fmt.Errorf("%w: %s: empty url", ErrInvalidArticle, a.ID)
	case a.Score < 0 || a.Score > 100:
		return fmt.Errorf("%w: %s: score %d outside [0,100]", ErrInvalidArticle, a.ID, a.Score)
	case !a.Category.Valid():
		return fmt.Errorf("%w: %s: category %q", ErrInvalidArticle, a.ID, a.Category)
	case !a.Importance.Valid():
		return fmt.Errorf("%w: %s: importance %q", ErrInvalidArticle, a.ID, a.Importance)
	case !a.Status.Valid():
		return fmt.Errorf("%w: %s: status %q", ErrInvalidArticle, a.ID, a.Status)
	}
	return nil
}

// RunReport summarizes one pipeline invocation.
type RunReport struct {
	RunID         string
	Sources       int
	FailedSources int
	Fetched       int
	New           int
	Scored        int
	ScoreFailures int
	Published     int
	Drafted       int
	Rejected      int
	Saved         int
	SaveFailures  int
	Notified      int
	Skipped       bool
	Duration      time.Duration
}
