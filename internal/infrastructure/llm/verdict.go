package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"SignalPipeline/internal/domain"
)

// ErrInvalidVerdict marks a scoring response that does not match the required shape.
var ErrInvalidVerdict = errors.New("invalid verdict")

const maxTags = 8

// wireVerdict is the JSON object the reasoning service must return.
type wireVerdict struct {
	Score      any      `json:"score"`
	Importance string   `json:"importance"`
	Category   string   `json:"category"`
	TitleJA    string   `json:"title_ja"`
	TitleEN    string   `json:"title_en"`
	SummaryJA  string   `json:"summary_ja"`
	SummaryEN  string   `json:"summary_en"`
	KeyInsight string   `json:"key_insight"`
	Tags       []string `json:"tags"`
}

// ParseVerdict validates a raw model reply. Code fences and prose around the
// JSON object are tolerated; anything else wrong yields ErrInvalidVerdict.
func ParseVerdict(raw string, fallback domain.Category) (domain.Verdict, error) {
	content := cleanJSONResponse(raw)
	if content == "" {
		return domain.Verdict{}, fmt.Errorf("%w: empty response", ErrInvalidVerdict)
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var wire wireVerdict
	if err := dec.Decode(&wire); err != nil {
		return domain.Verdict{}, fmt.Errorf("%w: decode: %v", ErrInvalidVerdict, err)
	}

	score, err := parseScore(wire.Score)
	if err != nil {
		return domain.Verdict{}, err
	}

	v := domain.Verdict{
		Score:      score,
		TitleJA:    strings.TrimSpace(wire.TitleJA),
		TitleEN:    strings.TrimSpace(wire.TitleEN),
		SummaryJA:  strings.TrimSpace(wire.SummaryJA),
		SummaryEN:  strings.TrimSpace(wire.SummaryEN),
		KeyInsight: strings.TrimSpace(wire.KeyInsight),
		Tags:       cleanTags(wire.Tags),
	}

	switch strings.ToLower(strings.TrimSpace(wire.Importance)) {
	case "skip":
		v.Skip = true
		v.Importance = domain.ImportanceNormal
	case "":
		v.Importance = importanceForScore(score)
	default:
		imp, ok := domain.ParseImportance(wire.Importance)
		if !ok {
			return domain.Verdict{}, fmt.Errorf("%w: unknown importance %q", ErrInvalidVerdict, wire.Importance)
		}
		v.Importance = imp
	}

	if strings.TrimSpace(wire.Category) == "" {
		v.Category = fallback
	} else {
		cat, ok := domain.ParseCategory(wire.Category)
		if !ok {
			return domain.Verdict{}, fmt.Errorf("%w: unknown category %q", ErrInvalidVerdict, wire.Category)
		}
		v.Category = cat
	}

	return v, nil
}

func parseScore(raw any) (int, error) {
	num, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: score %v is not a number", ErrInvalidVerdict, raw)
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: score %s is not a number", ErrInvalidVerdict, num)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: score %s is not an integer", ErrInvalidVerdict, num)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%w: score %s outside [0,100]", ErrInvalidVerdict, num)
	}
	return int(f), nil
}

func importanceForScore(score int) domain.Importance {
	switch {
	case score >= 90:
		return domain.ImportanceCritical
	case score >= 75:
		return domain.ImportanceHigh
	default:
		return domain.ImportanceNormal
	}
}

func cleanTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, min(len(raw), maxTags))
	for _, tag := range raw {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
