package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"SignalPipeline/internal/domain"
)

type fakeReader struct {
	articles []domain.Article
	err      error
	limit    int
}

func (r *fakeReader) ListPublished(_ context.Context, limit int) ([]domain.Article, error) {
	r.limit = limit
	return r.articles, r.err
}

func TestRecentPosts(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{articles: []domain.Article{
		{URL: "https://lab.example.com/b", TitleEN: "B", Importance: domain.ImportanceHigh, Score: 90},
		{URL: "https://lab.example.com/a", TitleEN: "A", Importance: domain.ImportanceNormal, Score: 80},
	}}

	out, err := RecentPosts(context.Background(), reader, 2)
	if err != nil {
		t.Fatalf("RecentPosts: %v", err)
	}
	if reader.limit != 2 {
		t.Fatalf("limit not forwarded, got %d", reader.limit)
	}
	posts := strings.Split(out, "\n\n[")
	if len(posts) != 2 || !strings.HasPrefix(posts[0], "[HIGH] B") || !strings.HasPrefix(posts[1], "NORMAL] A") {
		t.Fatalf("unexpected rendering:\n%s", out)
	}
}

func TestRecentPostsEmptyAndFailure(t *testing.T) {
	t.Parallel()

	out, err := RecentPosts(context.Background(), &fakeReader{}, 5)
	if err != nil || out != "" {
		t.Fatalf("empty store: got %q, %v", out, err)
	}

	boom := errors.New("db down")
	if _, err := RecentPosts(context.Background(), &fakeReader{err: boom}, 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
