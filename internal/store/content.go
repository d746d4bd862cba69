package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sujalbistaa/confesso/internal/models"
)

// ContentStore persists posts and comments.
type ContentStore struct {
	db *gorm.DB
}

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

// InsertPost assigns the id and creation time and writes the post. The
// author label arrives already resolved and is frozen from here on.
func (s *ContentStore) InsertPost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	return translate(s.db.WithContext(ctx).Create(post).Error)
}

// ListPosts returns all visible posts. Ordering is the feed ranker's job;
// the store hands back creation order only as an incidental hint.
func (s *ContentStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("hidden = ?", false).
		Order("created_at desc").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// GetPost returns one visible post or apperr.ErrNotFound.
func (s *ContentStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("hidden = ?", false).
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// UpdatePostAggregate writes the recomputed counters onto the post. Nothing
// but the score aggregator may call this.
func (s *ContentStore) UpdatePostAggregate(ctx context.Context, id string, upvotes, downvotes int) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{"upvotes": upvotes, "downvotes": downvotes})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// HidePost soft-hides a post. The row and its ledger stay intact.
func (s *ContentStore) HidePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("hidden", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// InsertComment writes a comment and bumps the post's denormalized count.
func (s *ContentStore) InsertComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("hidden = ?", false).First(&post, "id = ?", comment.PostID).Error; err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&post).
			Update("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	return translate(err)
}

// ListComments returns a post's comments oldest first, the opposite of the
// feed ordering.
func (s *ContentStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

// CountComments recounts a post's comments from the rows themselves.
func (s *ContentStore) CountComments(ctx context.Context, postID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}
