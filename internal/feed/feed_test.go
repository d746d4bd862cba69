package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sujalbistaa/confesso/internal/models"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func post(id, title, content, author string, age time.Duration, up, down int) models.Post {
	return models.Post{
		ID:          id,
		Title:       title,
		Content:     content,
		AuthorLabel: author,
		CreatedAt:   baseTime.Add(-age),
		Upvotes:     up,
		Downvotes:   down,
	}
}

func ids(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestRankNewOrdersByCreationDesc(t *testing.T) {
	posts := []models.Post{
		post("a", "oldest", "", "Silent Owl", 3*time.Hour, 5, 0),
		post("b", "newest", "", "Lost Fox", 1*time.Hour, 0, 0),
		post("c", "middle", "", "Calm Wolf", 2*time.Hour, 10, 0),
	}

	ranked := Rank(posts, SortNew, "")
	assert.Equal(t, []string{"b", "c", "a"}, ids(ranked))
}

func TestRankPopularOrdersByNetScoreDesc(t *testing.T) {
	// t=1 scored 5, t=2 scored 10: "new" puts t=2 first, so does "popular".
	posts := []models.Post{
		post("t1", "first", "", "Silent Owl", 2*time.Hour, 5, 0),
		post("t2", "second", "", "Lost Fox", 1*time.Hour, 10, 0),
	}

	assert.Equal(t, []string{"t2", "t1"}, ids(Rank(posts, SortNew, "")))
	assert.Equal(t, []string{"t2", "t1"}, ids(Rank(posts, SortPopular, "")))
}

func TestRankPopularUsesNetScore(t *testing.T) {
	posts := []models.Post{
		post("a", "a", "", "x", time.Hour, 10, 9), // net 1
		post("b", "b", "", "x", time.Hour, 3, 0),  // net 3
		post("c", "c", "", "x", time.Hour, 0, 2),  // net -2
	}

	ranked := Rank(posts, SortPopular, "")
	assert.Equal(t, []string{"b", "a", "c"}, ids(ranked))
	for i := 0; i < len(ranked)-1; i++ {
		assert.GreaterOrEqual(t, ranked[i].Score(), ranked[i+1].Score())
	}
}

func TestRankTieBreaksOnID(t *testing.T) {
	same := 1 * time.Hour
	posts := []models.Post{
		post("a", "a", "", "x", same, 2, 0),
		post("c", "c", "", "x", same, 2, 0),
		post("b", "b", "", "x", same, 2, 0),
	}

	// Equal timestamps and equal scores: both orderings fall back to id desc.
	assert.Equal(t, []string{"c", "b", "a"}, ids(Rank(posts, SortNew, "")))
	assert.Equal(t, []string{"c", "b", "a"}, ids(Rank(posts, SortPopular, "")))
}

func TestRankFiltersCaseInsensitively(t *testing.T) {
	posts := []models.Post{
		post("a", "Late-night coding", "feels safer than daytime", "Silent Owl", time.Hour, 0, 0),
		post("b", "Backend", "I pretend I understand backend", "Lost Fox", time.Hour, 0, 0),
		post("c", "Untitled", "nothing to see", "Midnight Coder", time.Hour, 0, 0),
	}

	assert.Equal(t, []string{"b"}, ids(Rank(posts, SortNew, "BACKEND")))
	// Matches title and author label on different posts.
	assert.ElementsMatch(t, []string{"a", "c"}, ids(Rank(posts, SortNew, "coD")))
	// Empty query returns the full set.
	assert.Len(t, Rank(posts, SortNew, ""), len(posts))
	assert.Len(t, Rank(posts, SortNew, "   "), len(posts))
	// No match returns an empty, non-nil slice.
	assert.Empty(t, Rank(posts, SortNew, "zzz"))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	posts := []models.Post{
		post("a", "a", "", "x", 3*time.Hour, 0, 0),
		post("b", "b", "", "x", 1*time.Hour, 5, 0),
		post("c", "c", "", "x", 2*time.Hour, 2, 0),
	}
	original := ids(posts)

	_ = Rank(posts, SortPopular, "")
	_ = Rank(posts, SortNew, "a")

	assert.Equal(t, original, ids(posts))
}

func TestRankUnknownSortFallsBackToNew(t *testing.T) {
	posts := []models.Post{
		post("a", "old", "", "x", 2*time.Hour, 50, 0),
		post("b", "new", "", "x", 1*time.Hour, 0, 0),
	}
	assert.Equal(t, []string{"b", "a"}, ids(Rank(posts, "spicy", "")))
}
