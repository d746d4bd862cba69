// Package votes implements the vote ledger and the score aggregator: the
// idempotent per-user voting protocol and the recomputation of the
// denormalized counters it feeds.
package votes

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sujalbistaa/confesso/internal/apperr"
	"github.com/sujalbistaa/confesso/internal/models"
	"github.com/sujalbistaa/confesso/internal/store"
)

// State is the resulting vote state for a (post, voter) pair.
type State int

const (
	None State = 0
	Up   State = models.VoteUp
	Down State = models.VoteDown
)

func (s State) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Result is what a settled vote round trip reports back: the pair's final
// state and the post's recomputed aggregate.
type Result struct {
	State     State `json:"userVote"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
}

// Score reports the aggregate counts for a post.
type Score struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Net is the score used for popularity ranking.
func (s Score) Net() int { return s.Upvotes - s.Downvotes }

// Ledger owns every write to the votes table and, through the aggregator
// step, every write to a post's counters.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CastVote applies one vote action for a (post, voter) pair and returns the
// settled state:
//
//	no existing vote        -> insert value
//	existing equals value   -> delete the row (toggle off)
//	existing differs        -> update in place (switch)
//
// The lookup, the write and the aggregate recompute run in one transaction,
// so the counters always reflect the ledger from the caller's point of view
// and a concurrent cast for the same pair serializes at the store.
func (l *Ledger) CastVote(ctx context.Context, postID, voterID string, value int) (Result, error) {
	if value != models.VoteUp && value != models.VoteDown {
		return Result{}, fmt.Errorf("%w: vote value must be +1 or -1, got %d", apperr.ErrValidation, value)
	}
	if voterID == "" {
		return Result{}, fmt.Errorf("%w: missing voter id", apperr.ErrValidation)
	}

	var result Result
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contents := store.NewContentStore(tx)
		ledger := store.NewVoteStore(tx)

		if _, err := contents.GetPost(ctx, postID); err != nil {
			return err
		}

		existing, err := ledger.GetVote(ctx, postID, voterID)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			if err := ledger.UpsertVote(ctx, postID, voterID, value); err != nil {
				return err
			}
			result.State = State(value)
		case existing.Value == value:
			if err := ledger.DeleteVote(ctx, postID, voterID); err != nil {
				return err
			}
			result.State = None
		default:
			if err := ledger.UpsertVote(ctx, postID, voterID, value); err != nil {
				return err
			}
			result.State = State(value)
		}

		score, err := recompute(ctx, tx, postID)
		if err != nil {
			return err
		}
		result.Upvotes = score.Upvotes
		result.Downvotes = score.Downvotes
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// VoteFor reports the current state for a pair without changing anything.
func (l *Ledger) VoteFor(ctx context.Context, postID, voterID string) (State, error) {
	vote, err := store.NewVoteStore(l.db).GetVote(ctx, postID, voterID)
	if err != nil {
		return None, err
	}
	if vote == nil {
		return None, nil
	}
	return State(vote.Value), nil
}

// RecomputeScore recounts a post's ledger rows and persists the pair of
// counters onto the post. CastVote already does this inline; this entry
// point exists for repairing counters drifted by out-of-band writes.
func (l *Ledger) RecomputeScore(ctx context.Context, postID string) (Score, error) {
	var score Score
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := recompute(ctx, tx, postID)
		if err != nil {
			return err
		}
		score = s
		return nil
	})
	if err != nil {
		return Score{}, err
	}
	return score, nil
}

func recompute(ctx context.Context, tx *gorm.DB, postID string) (Score, error) {
	ledger := store.NewVoteStore(tx)

	up, err := ledger.CountVotes(ctx, postID, models.VoteUp)
	if err != nil {
		return Score{}, err
	}
	down, err := ledger.CountVotes(ctx, postID, models.VoteDown)
	if err != nil {
		return Score{}, err
	}

	if err := store.NewContentStore(tx).UpdatePostAggregate(ctx, postID, up, down); err != nil {
		return Score{}, err
	}
	return Score{Upvotes: up, Downvotes: down}, nil
}
