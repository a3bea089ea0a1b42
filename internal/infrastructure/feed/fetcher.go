package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"SignalPipeline/internal/domain"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxItems = 5
	maxBodyRunes    = 2000
	maxFeedBytes    = 8 << 20
)

// Fetcher downloads a single feed and turns its newest entries into candidates.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxItems  int
	now       func() time.Time
}

// NewFetcher wires an HTTP client; timeout defaults to 15s and maxItems to 5.
func NewFetcher(client *http.Client, timeout time.Duration, maxItems int, userAgent string) *Fetcher {
	if timeout <= 0 || timeout > defaultTimeout {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if userAgent == "" {
		userAgent = "SignalPipeline/1.0"
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		maxItems:  maxItems,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Fetch retrieves src and returns at most maxItems candidates in feed order.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	base := feedBase(src.URL, parsed.Link)
	fetchedAt := f.now()
	count := min(len(parsed.Items), f.maxItems)
	candidates := make([]domain.Candidate, 0, count)
	for _, item := range parsed.Items[:count] {
		if item == nil {
			continue
		}
		link := resolveLink(base, strings.TrimSpace(item.Link))
		if link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			publishedAt = item.UpdatedParsed.UTC()
		} else {
			publishedAt = fetchedAt
		}

		summary := item.Description
		if strings.TrimSpace(summary) == "" {
			summary = item.Content
		}

		candidates = append(candidates, domain.Candidate{
			URL:         link,
			Title:       collapse(item.Title),
			Body:        truncateRunes(htmlToText(summary), maxBodyRunes),
			Source:      src,
			PublishedAt: publishedAt,
			FetchedAt:   fetchedAt,
		})
	}
	return candidates, nil
}

// feedBase is the URL relative item links resolve against: the channel's own
// link when it parses, else the feed endpoint.
func feedBase(endpoint, channelLink string) *url.URL {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil
	}
	if channelLink = strings.TrimSpace(channelLink); channelLink != "" {
		if ref, err := url.Parse(channelLink); err == nil {
			base = base.ResolveReference(ref)
		}
	}
	return base
}

func resolveLink(base *url.URL, link string) string {
	if link == "" || base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return base.ResolveReference(ref).String()
}

// htmlToText drops markup and collapses whitespace. Input that goquery cannot
// parse is returned collapsed as-is.
func htmlToText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapse(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(raw)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
