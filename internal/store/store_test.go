package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sujalbistaa/confesso/internal/apperr"
	"github.com/sujalbistaa/confesso/internal/db"
	"github.com/sujalbistaa/confesso/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func seedPost(t *testing.T, gdb *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, NewContentStore(gdb).InsertPost(context.Background(), &models.Post{
		ID: id, Title: "t", Kind: models.KindText, Content: "c", AuthorLabel: "a",
	}))
}

func TestInsertPostAssignsIDAndTimestamp(t *testing.T) {
	contents := NewContentStore(newTestDB(t))
	post := &models.Post{Title: "t", Kind: models.KindText, Content: "c", AuthorLabel: "Silent Owl"}

	require.NoError(t, contents.InsertPost(context.Background(), post))
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
}

func TestListPostsSkipsHidden(t *testing.T) {
	gdb := newTestDB(t)
	contents := NewContentStore(gdb)
	ctx := context.Background()

	visible := &models.Post{Title: "visible", Kind: models.KindText, Content: "c", AuthorLabel: "a"}
	hidden := &models.Post{Title: "hidden", Kind: models.KindText, Content: "c", AuthorLabel: "a"}
	require.NoError(t, contents.InsertPost(ctx, visible))
	require.NoError(t, contents.InsertPost(ctx, hidden))
	require.NoError(t, contents.HidePost(ctx, hidden.ID))

	posts, err := contents.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, visible.ID, posts[0].ID)

	_, err = contents.GetPost(ctx, hidden.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetPostUnknownIsNotFound(t *testing.T) {
	contents := NewContentStore(newTestDB(t))
	_, err := contents.GetPost(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePostAggregateUnknownIsNotFound(t *testing.T) {
	contents := NewContentStore(newTestDB(t))
	err := contents.UpdatePostAggregate(context.Background(), "nope", 1, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInsertCommentBumpsCountAndOrdersOldestFirst(t *testing.T) {
	gdb := newTestDB(t)
	contents := NewContentStore(gdb)
	ctx := context.Background()

	post := &models.Post{Title: "t", Kind: models.KindText, Content: "c", AuthorLabel: "a"}
	require.NoError(t, contents.InsertPost(ctx, post))

	first := &models.Comment{PostID: post.ID, AuthorLabel: "Lost Fox", Text: "first", CreatedAt: time.Now().UTC().Add(-time.Minute)}
	second := &models.Comment{PostID: post.ID, AuthorLabel: "Calm Wolf", Text: "second"}
	require.NoError(t, contents.InsertComment(ctx, first))
	require.NoError(t, contents.InsertComment(ctx, second))

	comments, err := contents.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)

	got, err := contents.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)

	n, err := contents.CountComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertCommentOnUnknownPost(t *testing.T) {
	contents := NewContentStore(newTestDB(t))
	err := contents.InsertComment(context.Background(), &models.Comment{PostID: "nope", AuthorLabel: "a", Text: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertVoteKeepsOneRowPerPair(t *testing.T) {
	gdb := newTestDB(t)
	votes := NewVoteStore(gdb)
	ctx := context.Background()
	seedPost(t, gdb, "p1")

	// Two inserts for the same pair, as a lost race would produce: the
	// second falls through to an update of the value.
	require.NoError(t, votes.UpsertVote(ctx, "p1", "v1", models.VoteUp))
	require.NoError(t, votes.UpsertVote(ctx, "p1", "v1", models.VoteDown))

	var n int64
	require.NoError(t, gdb.Model(&models.Vote{}).Where("post_id = ? AND voter_id = ?", "p1", "v1").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	vote, err := votes.GetVote(ctx, "p1", "v1")
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteDown, vote.Value)
}

func TestGetVoteAbsentIsNilNotError(t *testing.T) {
	votes := NewVoteStore(newTestDB(t))
	vote, err := votes.GetVote(context.Background(), "p1", "v1")
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestDeleteVoteIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	votes := NewVoteStore(gdb)
	ctx := context.Background()
	seedPost(t, gdb, "p1")

	require.NoError(t, votes.UpsertVote(ctx, "p1", "v1", models.VoteUp))
	require.NoError(t, votes.DeleteVote(ctx, "p1", "v1"))
	// Deleting again is not an error; the end state is identical.
	require.NoError(t, votes.DeleteVote(ctx, "p1", "v1"))

	vote, err := votes.GetVote(ctx, "p1", "v1")
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCountVotesByValue(t *testing.T) {
	gdb := newTestDB(t)
	votes := NewVoteStore(gdb)
	ctx := context.Background()
	seedPost(t, gdb, "p1")
	seedPost(t, gdb, "p2")

	require.NoError(t, votes.UpsertVote(ctx, "p1", "a", models.VoteUp))
	require.NoError(t, votes.UpsertVote(ctx, "p1", "b", models.VoteUp))
	require.NoError(t, votes.UpsertVote(ctx, "p1", "c", models.VoteDown))
	require.NoError(t, votes.UpsertVote(ctx, "p2", "a", models.VoteUp))

	up, err := votes.CountVotes(ctx, "p1", models.VoteUp)
	require.NoError(t, err)
	down, err := votes.CountVotes(ctx, "p1", models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 2, up)
	assert.Equal(t, 1, down)

	all, err := votes.ListVotes(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
