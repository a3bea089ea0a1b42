package usecase

import (
	"context"
	"fmt"
	"strings"

	"SignalPipeline/internal/ports"
)

// RecentPosts renders the newest published articles as announcements,
// newest first, separated by blank lines.
func RecentPosts(ctx context.Context, reader ports.ArticleReader, limit int) (string, error) {
	articles, err := reader.ListPublished(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list published: %w", err)
	}

	posts := make([]string, 0, len(articles))
	for _, a := range articles {
		posts = append(posts, FormatPost(a))
	}
	return strings.Join(posts, "\n\n"), nil
}
