// Package client holds the client-side vote core: a per-post state machine
// that gives immediate feedback on a vote action and reconciles it with the
// authoritative ledger round trip, rolling back when the store fails.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sujalbistaa/confesso/internal/votes"
)

// ErrVoteInFlight is returned while a previous vote on the same post has not
// settled; the UI disables the control rather than queueing actions.
var ErrVoteInFlight = errors.New("vote already in flight")

// Phase of one post's vote machine.
type Phase int

const (
	Idle Phase = iota
	Pending
)

// Outcome of the most recent settled round trip.
type Outcome int

const (
	// NoOutcome means nothing has settled yet.
	NoOutcome Outcome = iota
	// Settled means the server counts were adopted.
	Settled
	// RolledBack means the optimistic change was reverted after a failure.
	RolledBack
)

// pulseDuration is how long the "just voted" highlight lasts. Presentation
// only; nothing in the machine depends on it.
const pulseDuration = 300 * time.Millisecond

// VoteCaster is the ledger+aggregator round trip the controller drives.
type VoteCaster interface {
	CastVote(ctx context.Context, postID, voterID string, value int) (votes.Result, error)
}

// Snapshot is one post's state as the UI should render it.
type Snapshot struct {
	Phase      Phase
	UserVote   votes.State
	Upvotes    int
	Downvotes  int
	Outcome    Outcome
	pulseUntil time.Time
}

// JustVoted reports whether the vote pulse is still running at t.
func (s Snapshot) JustVoted(t time.Time) bool {
	return t.Before(s.pulseUntil)
}

type postState struct {
	phase      Phase
	userVote   votes.State
	upvotes    int
	downvotes  int
	outcome    Outcome
	pulseUntil time.Time
}

// Controller reconciles optimistic UI state with the vote ledger. One
// controller serves one device identity; posts are tracked independently.
type Controller struct {
	mu        sync.Mutex
	caster    VoteCaster
	voterID   string
	posts     map[string]*postState
	discarded bool
	now       func() time.Time
}

// NewController builds a controller for the given device voter id. The id is
// passed in explicitly; the controller never reads ambient identity state.
func NewController(caster VoteCaster, voterID string) *Controller {
	return &Controller{
		caster:  caster,
		voterID: voterID,
		posts:   map[string]*postState{},
		now:     time.Now,
	}
}

// Seed primes a post's local state from fetched data, typically right after
// loading the feed.
func (c *Controller) Seed(postID string, upvotes, downvotes int, userVote votes.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[postID] = &postState{
		userVote:  userVote,
		upvotes:   upvotes,
		downvotes: downvotes,
	}
}

// Vote runs one vote action through the machine: flip the local indicator
// and counters, go Pending, issue the round trip, then either adopt the
// server counts (Settled) or revert the flip (RolledBack). The returned
// snapshot is the post-settlement state; on error it is the reverted state.
//
// A second action while the first is Pending fails with ErrVoteInFlight.
func (c *Controller) Vote(ctx context.Context, postID string, value int) (Snapshot, error) {
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return Snapshot{}, nil
	}
	st, ok := c.posts[postID]
	if !ok {
		st = &postState{}
		c.posts[postID] = st
	}
	if st.phase == Pending {
		snap := snapshotOf(st)
		c.mu.Unlock()
		return snap, ErrVoteInFlight
	}

	prevVote := st.userVote
	prevUp, prevDown := st.upvotes, st.downvotes

	// Optimistic flip: the indicator and counters move immediately, before
	// the store has confirmed anything.
	next := nextVote(prevVote, value)
	applyDelta(st, prevVote, next)
	st.userVote = next
	st.phase = Pending
	c.mu.Unlock()

	result, err := c.caster.CastVote(ctx, postID, c.voterID, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discarded {
		// The view went away mid-flight; drop the result on the floor.
		return Snapshot{}, nil
	}
	st.phase = Idle
	if err != nil {
		st.userVote = prevVote
		st.upvotes, st.downvotes = prevUp, prevDown
		st.outcome = RolledBack
		return snapshotOf(st), err
	}
	st.userVote = result.State
	st.upvotes = result.Upvotes
	st.downvotes = result.Downvotes
	st.outcome = Settled
	st.pulseUntil = c.now().Add(pulseDuration)
	return snapshotOf(st), nil
}

// Snapshot returns the current state for a post. Unknown posts read as a
// zero-valued Idle state.
func (c *Controller) Snapshot(postID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.posts[postID]
	if !ok {
		return Snapshot{}
	}
	return snapshotOf(st)
}

// Discard tells the controller its view is gone. In-flight results are
// dropped instead of updating unmounted state; further Votes are no-ops.
func (c *Controller) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = true
}

func snapshotOf(st *postState) Snapshot {
	return Snapshot{
		Phase:      st.phase,
		UserVote:   st.userVote,
		Upvotes:    st.upvotes,
		Downvotes:  st.downvotes,
		Outcome:    st.outcome,
		pulseUntil: st.pulseUntil,
	}
}

// nextVote is the toggle rule: repeating the current direction clears it,
// anything else adopts the new direction.
func nextVote(current votes.State, value int) votes.State {
	if current == votes.State(value) {
		return votes.None
	}
	return votes.State(value)
}

// applyDelta moves the local counters between two vote states.
func applyDelta(st *postState, from, to votes.State) {
	switch from {
	case votes.Up:
		st.upvotes--
	case votes.Down:
		st.downvotes--
	}
	switch to {
	case votes.Up:
		st.upvotes++
	case votes.Down:
		st.downvotes++
	}
	if st.upvotes < 0 {
		st.upvotes = 0
	}
	if st.downvotes < 0 {
		st.downvotes = 0
	}
}
