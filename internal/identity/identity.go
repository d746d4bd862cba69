// Package identity resolves the stable anonymous identity of one device: a
// voter id used to key votes, and a human-readable alias shown as the author
// label when nobody is signed in. Both are minted lazily on first use and
// persisted; neither is ever rotated automatically. Clearing the device slot
// mints a fresh identity, so votes are forgettable across a reset.
package identity

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Slot keys inside the device store.
const (
	voterIDKey = "anon_user_id"
	aliasKey   = "anon_username"
)

var aliasAdjectives = []string{
	"Silent", "Lost", "Midnight", "Hidden", "Lonely",
	"Curious", "Broken", "Calm", "Wandering",
}

var aliasNouns = []string{
	"Owl", "Fox", "Coder", "Soul", "Shadow", "Dreamer", "Wolf", "Mind",
}

// Store persists the two identity strings on the local device. Values put
// here are owned exclusively by this device and never synchronized anywhere.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Resolver hands out the device identity. Safe for concurrent use.
type Resolver struct {
	mu    sync.Mutex
	store Store
}

// NewResolver wraps a device store. The identity is an explicit value the
// caller threads into the vote client, not ambient state.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// VoterID returns the persisted voter id, minting and persisting a random
// one on first use. Idempotent across calls and resolver instances sharing
// the same store.
func (r *Resolver) VoterID() (string, error) {
	return r.resolve(voterIDKey, uuid.NewString)
}

// Alias returns the persisted display alias, minting a two-word one on first
// use. Its lifecycle is independent from the voter id: clearing one slot
// does not touch the other.
func (r *Resolver) Alias() (string, error) {
	return r.resolve(aliasKey, newAlias)
}

// Reset forgets both slots. The next VoterID/Alias call mints a fresh
// identity, after which earlier votes can no longer be toggled off.
func (r *Resolver) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(voterIDKey); err != nil {
		return err
	}
	return r.store.Delete(aliasKey)
}

func (r *Resolver) resolve(key string, mint func() string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok, err := r.store.Get(key)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	if ok && v != "" {
		return v, nil
	}
	v = mint()
	if err := r.store.Set(key, v); err != nil {
		return "", fmt.Errorf("persisting %s: %w", key, err)
	}
	return v, nil
}

func newAlias() string {
	adj := aliasAdjectives[rand.Intn(len(aliasAdjectives))]
	noun := aliasNouns[rand.Intn(len(aliasNouns))]
	return adj + " " + noun
}
