package gate

import (
	"fmt"
	"strings"
	"time"

	"SignalPipeline/internal/domain"
)

// Default thresholds. Scores under RejectBelowScore are the "skip" band;
// direct publication needs both a high score and a trusted source.
const (
	DefaultRejectBelowScore = 60
	DefaultPublishMinScore  = 75
	DefaultPublishMinTrust  = 85
)

// Policy holds the tunable thresholds that decide an article's initial status.
type Policy struct {
	RejectBelowScore int `yaml:"rejectBelowScore"`
	PublishMinScore  int `yaml:"publishMinScore"`
	PublishMinTrust  int `yaml:"publishMinTrust"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		RejectBelowScore: DefaultRejectBelowScore,
		PublishMinScore:  DefaultPublishMinScore,
		PublishMinTrust:  DefaultPublishMinTrust,
	}
}

// Validate rejects thresholds that cannot describe a meaningful policy.
func (p Policy) Validate() error {
	for name, v := range map[string]int{
		"rejectBelowScore": p.RejectBelowScore,
		"publishMinScore":  p.PublishMinScore,
		"publishMinTrust":  p.PublishMinTrust,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("gate %s=%d outside [0,100]", name, v)
		}
	}
	if p.RejectBelowScore > p.PublishMinScore {
		return fmt.Errorf("gate rejectBelowScore=%d exceeds publishMinScore=%d", p.RejectBelowScore, p.PublishMinScore)
	}
	return nil
}

// Decide maps source trust and verdict onto the initial workflow status.
func (p Policy) Decide(trust int, v domain.Verdict) domain.Status {
	switch {
	case v.Skip, v.Score < p.RejectBelowScore:
		return domain.StatusRejected
	case v.Score >= p.PublishMinScore && trust >= p.PublishMinTrust:
		return domain.StatusPublished
	default:
		return domain.StatusDraft
	}
}

// Finalize merges candidate, identity and verdict into the record to persist.
// The verdict category wins over the source default since it reflects content.
func (p Policy) Finalize(id string, c domain.Candidate, v domain.Verdict, now time.Time) domain.Article {
	category := v.Category
	if !category.Valid() {
		category = c.Source.Category
	}

	published := c.PublishedAt
	if published.IsZero() {
		published = c.FetchedAt
	}

	titleEN := v.TitleEN
	if strings.TrimSpace(titleEN) == "" {
		titleEN = c.Title
	}

	return domain.Article{
		ID:            id,
		URL:           c.URL,
		SourceName:    c.Source.Name,
		OriginalTitle: c.Title,
		Category:      category,
		Score:         v.Score,
		Importance:    v.Importance,
		TitleJA:       v.TitleJA,
		TitleEN:       titleEN,
		SummaryJA:     v.SummaryJA,
		SummaryEN:     v.SummaryEN,
		KeyInsight:    v.KeyInsight,
		Tags:          v.Tags,
		Status:        p.Decide(c.Source.Trust, v),
		PublishedAt:   published,
		ProcessedAt:   now,
	}
}
