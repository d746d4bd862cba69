package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/confesso/internal/apperr"
	"github.com/sujalbistaa/confesso/internal/models"
	"github.com/sujalbistaa/confesso/internal/votes"
)

// fakeCaster scripts the ledger round trip. When entered/release are set,
// CastVote parks between them so tests can observe the Pending phase.
type fakeCaster struct {
	mu      sync.Mutex
	result  votes.Result
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCaster) CastVote(ctx context.Context, postID, voterID string, value int) (votes.Result, error) {
	f.mu.Lock()
	f.calls++
	entered, release := f.entered, f.release
	result, err := f.result, f.err
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if release != nil {
		<-release
	}
	return result, err
}

func TestVoteSettlesOnServerCounts(t *testing.T) {
	caster := &fakeCaster{result: votes.Result{State: votes.Up, Upvotes: 7, Downvotes: 2}}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 3, 2, votes.None)

	snap, err := ctrl.Vote(context.Background(), "p1", models.VoteUp)
	require.NoError(t, err)

	// Server counts win over whatever the optimistic delta produced.
	assert.Equal(t, Idle, snap.Phase)
	assert.Equal(t, Settled, snap.Outcome)
	assert.Equal(t, votes.Up, snap.UserVote)
	assert.Equal(t, 7, snap.Upvotes)
	assert.Equal(t, 2, snap.Downvotes)
	assert.True(t, snap.JustVoted(time.Now()))
	assert.False(t, snap.JustVoted(time.Now().Add(time.Second)))
}

func TestVoteRollsBackOnStoreFailure(t *testing.T) {
	caster := &fakeCaster{err: apperr.ErrStoreUnavailable}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 5, 1, votes.Down)

	snap, err := ctrl.Vote(context.Background(), "p1", models.VoteUp)
	require.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	// The failure is reported and the pre-action state is restored.
	assert.Equal(t, Idle, snap.Phase)
	assert.Equal(t, RolledBack, snap.Outcome)
	assert.Equal(t, votes.Down, snap.UserVote)
	assert.Equal(t, 5, snap.Upvotes)
	assert.Equal(t, 1, snap.Downvotes)
	assert.False(t, snap.JustVoted(time.Now()))
}

func TestVoteOptimisticFlipVisibleWhilePending(t *testing.T) {
	caster := &fakeCaster{
		result:  votes.Result{State: votes.Up, Upvotes: 1},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 0, 0, votes.None)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := ctrl.Vote(context.Background(), "p1", models.VoteUp)
		assert.NoError(t, err)
	}()
	<-caster.entered

	snap := ctrl.Snapshot("p1")
	assert.Equal(t, Pending, snap.Phase)
	assert.Equal(t, votes.Up, snap.UserVote)
	assert.Equal(t, 1, snap.Upvotes)

	close(caster.release)
	<-done
	assert.Equal(t, Idle, ctrl.Snapshot("p1").Phase)
}

func TestVoteRejectedWhileInFlight(t *testing.T) {
	caster := &fakeCaster{
		result:  votes.Result{State: votes.Up, Upvotes: 1},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 0, 0, votes.None)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = ctrl.Vote(context.Background(), "p1", models.VoteUp)
	}()
	<-caster.entered

	_, err := ctrl.Vote(context.Background(), "p1", models.VoteDown)
	assert.ErrorIs(t, err, ErrVoteInFlight)

	close(caster.release)
	<-done

	// Only the first action reached the ledger.
	assert.Equal(t, 1, caster.calls)
}

func TestDiscardDropsInFlightResult(t *testing.T) {
	caster := &fakeCaster{
		result:  votes.Result{State: votes.Up, Upvotes: 100},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 0, 0, votes.None)

	done := make(chan Snapshot)
	go func() {
		snap, err := ctrl.Vote(context.Background(), "p1", models.VoteUp)
		assert.NoError(t, err)
		done <- snap
	}()
	<-caster.entered

	ctrl.Discard()
	close(caster.release)

	// The result is dropped, not applied to the discarded state.
	snap := <-done
	assert.Equal(t, Snapshot{}, snap)

	after := ctrl.Snapshot("p1")
	assert.NotEqual(t, 100, after.Upvotes)
}

func TestVoteAfterDiscardIsNoop(t *testing.T) {
	caster := &fakeCaster{result: votes.Result{State: votes.Up, Upvotes: 1}}
	ctrl := NewController(caster, "device-1")
	ctrl.Discard()

	snap, err := ctrl.Vote(context.Background(), "p1", models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
	assert.Equal(t, 0, caster.calls)
}

func TestNextVoteToggleRule(t *testing.T) {
	assert.Equal(t, votes.Up, nextVote(votes.None, models.VoteUp))
	assert.Equal(t, votes.None, nextVote(votes.Up, models.VoteUp))
	assert.Equal(t, votes.Down, nextVote(votes.Up, models.VoteDown))
	assert.Equal(t, votes.Up, nextVote(votes.Down, models.VoteUp))
	assert.Equal(t, votes.None, nextVote(votes.Down, models.VoteDown))
}

func TestVoteErrorIsNeverSilent(t *testing.T) {
	boom := errors.New("boom")
	caster := &fakeCaster{err: boom}
	ctrl := NewController(caster, "device-1")
	ctrl.Seed("p1", 0, 0, votes.None)

	_, err := ctrl.Vote(context.Background(), "p1", models.VoteDown)
	assert.ErrorIs(t, err, boom)
}
