package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/illegalcall/match-master/internal/models"
)

// ErrNotFound is returned when a profile or match id has no record. It is a
// normal outcome, never a storage failure.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a persistence I/O failure. Callers must surface it;
// previously committed state is unaffected.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store is the durable keyed storage for profiles and matches. Listing order
// is unspecified. Deletes are idempotent. Implementations must make
// UpdateProfile/UpdateMatch read-modify-write atomic per key and CreateMatch
// atomic per unordered pair.
type Store interface {
	SaveProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	// UpdateProfile applies the mutator to the stored profile under a
	// per-profile lock and persists the result. Concurrent updates to the
	// same profile never lose writes.
	UpdateProfile(ctx context.Context, id string, mutate func(*models.Profile) error) (*models.Profile, error)

	// CreateMatch persists a new match unless a match for the same unordered
	// pair already exists, in which case the existing match is returned and
	// created is false. At most one match can ever exist per pair.
	CreateMatch(ctx context.Context, m *models.Match) (match *models.Match, created bool, err error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	// MatchesForProfile returns every match the profile participates in.
	// Naive implementations scan all matches: O(n).
	MatchesForProfile(ctx context.Context, profileID string) ([]*models.Match, error)
	UpdateMatch(ctx context.Context, id string, mutate func(*models.Match) error) (*models.Match, error)

	Close() error
}

// keyedMutex hands out one mutex per key. Entries are never evicted; the key
// space is bounded by the number of stored entities.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
