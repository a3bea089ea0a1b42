package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"SignalPipeline/internal/domain"
)

var fixedHashtags = []string{"#AINews", "#SIGNAL"}

// notify posts the highest scoring critical/high articles published in this
// run and returns how many posts went out.
func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, published []domain.Article) int {
	if p.notifier == nil || p.maxPosts == 0 {
		return 0
	}

	picked := selectForNotification(published, p.maxPosts)
	sent := 0
	for _, article := range picked {
		if err := p.notifier.PublishDigest(ctx, FormatPost(article)); err != nil {
			log.Warn("notify article", "id", article.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func selectForNotification(published []domain.Article, limit int) []domain.Article {
	picked := make([]domain.Article, 0, len(published))
	for _, a := range published {
		if a.Importance == domain.ImportanceCritical || a.Importance == domain.ImportanceHigh {
			picked = append(picked, a)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Score > picked[j].Score })
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// maxPostRunes keeps a post inside a single tweet.
const maxPostRunes = 280

// FormatPost renders one article as a short announcement of at most
// maxPostRunes runes. An overlong key insight is shortened first so the URL
// and hashtags survive.
func FormatPost(a domain.Article) string {
	head := fmt.Sprintf("[%s] %s\n\n", strings.ToUpper(string(a.Importance)), postTitle(a))
	tail := fmt.Sprintf("Quality Score: %d/100\n%s\n\n%s", a.Score, a.URL, postHashtags(a.Tags))

	post := head + tail
	if insight := strings.TrimSpace(a.KeyInsight); insight != "" {
		if room := maxPostRunes - utf8.RuneCountInString(post) - 2; room > len(ellipsis) {
			post = head + clip(insight, room) + "\n\n" + tail
		}
	}
	return clip(post, maxPostRunes)
}

func postTitle(a domain.Article) string {
	for _, t := range []string{a.TitleJA, a.TitleEN, a.OriginalTitle} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

func postHashtags(raw []string) string {
	tags := make([]string, 0, 5)
	for _, tag := range raw {
		if len(tags) == 3 {
			break
		}
		tag = strings.Join(strings.Fields(tag), "")
		if tag != "" {
			tags = append(tags, "#"+tag)
		}
	}
	tags = append(tags, fixedHashtags...)
	return strings.Join(tags, " ")
}

const ellipsis = "..."

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
