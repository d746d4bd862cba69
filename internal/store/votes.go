package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/confesso/internal/models"
)

// VoteStore persists the vote ledger: one row per (post, voter) pair.
type VoteStore struct {
	db *gorm.DB
}

func NewVoteStore(db *gorm.DB) *VoteStore {
	return &VoteStore{db: db}
}

// GetVote returns the pair's vote, or (nil, nil) when no vote exists.
func (s *VoteStore) GetVote(ctx context.Context, postID, voterID string) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).
		First(&vote, "post_id = ? AND voter_id = ?", postID, voterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

// UpsertVote writes the pair's vote. A racing first insert loses to the
// composite key and falls through to an update of the value, so two
// concurrent "first votes" can never leave two rows behind.
func (s *VoteStore) UpsertVote(ctx context.Context, postID, voterID string, value int) error {
	vote := models.Vote{
		PostID:    postID,
		VoterID:   voterID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "voter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&vote).Error
	return translate(err)
}

// DeleteVote removes the pair's row entirely. Removing an absent vote is
// not an error; the end state is the same.
func (s *VoteStore) DeleteVote(ctx context.Context, postID, voterID string) error {
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND voter_id = ?", postID, voterID).
		Delete(&models.Vote{}).Error
	return translate(err)
}

// ListVotes returns every ledger row for a post.
func (s *VoteStore) ListVotes(ctx context.Context, postID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Find(&votes).Error
	if err != nil {
		return nil, translate(err)
	}
	return votes, nil
}

// CountVotes counts a post's ledger rows with the given value.
func (s *VoteStore) CountVotes(ctx context.Context, postID string, value int) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("post_id = ? AND value = ?", postID, value).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}
