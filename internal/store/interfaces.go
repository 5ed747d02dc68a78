// Package store defines the persistence boundary the engine itself never
// crosses: the core shgat package only ever holds parameters and a replay
// buffer in memory, and relies on a host process to load and save them
// across restarts (spec §5 treats persistence as an external collaborator).
package store

import (
	"context"
	"errors"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
)

// ErrNotFound is returned by ParamStore.LoadParams when no snapshot has
// been saved yet for the given key.
var ErrNotFound = errors.New("store: not found")

// ParamStore persists and retrieves exported parameter blobs (spec §6.2's
// binary layout), keyed by an opaque engine/model identifier so a single
// backing store can hold snapshots for more than one engine instance.
type ParamStore interface {
	// SaveParams persists blob under key, overwriting any prior snapshot.
	SaveParams(ctx context.Context, key string, blob []byte) error

	// LoadParams retrieves the most recently saved blob for key. Returns
	// ErrNotFound if nothing has been saved yet.
	LoadParams(ctx context.Context, key string) ([]byte, error)
}

// ExampleStore persists training examples and supports priority-weighted
// retrieval for the prioritized replay loop to draw from across restarts,
// supplementing the in-memory ReplayBuffer which does not survive a
// process exit.
type ExampleStore interface {
	// SaveExample appends ex to the store under key with the given
	// initial priority.
	SaveExample(ctx context.Context, key string, ex shgat.TrainingExample, priority float64) error

	// FetchPrioritySample returns up to n examples for key, weighted
	// toward higher recorded priority.
	FetchPrioritySample(ctx context.Context, key string, n int) ([]shgat.TrainingExample, error)

	// UpdatePriority overwrites the recorded priority of the stored
	// example with the given ID.
	UpdatePriority(ctx context.Context, key string, exampleID string, priority float64) error
}
