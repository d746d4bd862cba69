// Package feed orders and filters the post collection for display.
package feed

import (
	"sort"
	"strings"

	"github.com/sujalbistaa/confesso/internal/models"
)

// Sort orders accepted by Rank.
const (
	SortNew     = "new"
	SortPopular = "popular"
)

// Rank returns a fresh slice of posts ordered for the feed, optionally
// filtered by query. The input slice is never reordered or mutated.
//
// A non-empty query keeps only posts whose title, content or author label
// contains it as a case-insensitive substring. "new" orders by creation time
// descending, "popular" by net score descending; anything else falls back to
// "new". Ties break on id descending so equal timestamps or scores still
// produce a deterministic feed.
func Rank(posts []models.Post, sortBy, query string) []models.Post {
	ranked := make([]models.Post, 0, len(posts))
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		for _, p := range posts {
			if matches(p, q) {
				ranked = append(ranked, p)
			}
		}
	} else {
		ranked = append(ranked, posts...)
	}

	switch sortBy {
	case SortPopular:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Score() != ranked[j].Score() {
				return ranked[i].Score() > ranked[j].Score()
			}
			return ranked[i].ID > ranked[j].ID
		})
	default:
		sort.SliceStable(ranked, func(i, j int) bool {
			if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
				return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
			}
			return ranked[i].ID > ranked[j].ID
		})
	}
	return ranked
}

func matches(p models.Post, q string) bool {
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Content), q) ||
		strings.Contains(strings.ToLower(p.AuthorLabel), q)
}
