// Package store defines the blob-storage contract chunks are persisted
// through (spec §6.1) and the errors its backends raise. Concrete backends
// live in subpackages (filestore, s3store); this package only specifies what
// they must satisfy so the importer and retriever never depend on a backend
// directly.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tobias93/georocket/internal/chunk"
)

// Path is the opaque, store-assigned identifier for a persisted chunk blob.
// It is stable for the blob's lifetime; callers must treat it as opaque.
type Path string

// Item is one element of a get_many_parallel result stream: the path that
// was requested and either its bytes or the error that occurred fetching it.
type Item struct {
	Path  Path
	Bytes []byte
	Err   error
}

// Store is GeoRocket's required blob-store contract (spec §6.1). A backend
// must be safe for concurrent calls from multiple import/query pipelines.
type Store interface {
	// Add persists chunk bytes under the given layer and returns the
	// assigned path. chunkMeta and indexMeta travel alongside for backends
	// that want to derive a human-readable path (e.g. by timestamp).
	Add(ctx context.Context, b []byte, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta, layer string) (Path, error)

	// GetOne returns the bytes for a single path.
	GetOne(ctx context.Context, path Path) ([]byte, error)

	// GetManyParallel fans out reads across up to parallelism concurrent
	// workers but preserves the input stream's order in its output.
	GetManyParallel(ctx context.Context, paths <-chan Path, parallelism int) <-chan Item

	// Delete removes a batch of blobs. It is idempotent: a path that does
	// not exist is a silent success, not an error.
	Delete(ctx context.Context, paths []Path) error

	// Close releases any resources (file handles, connections) held by the
	// backend. Calling Close more than once is safe.
	Close() error
}

// UpstreamFailure wraps an error returned by a store or index backend (spec
// §7). Cause is the backend's own error.
type UpstreamFailure struct {
	Cause error
}

func (e *UpstreamFailure) Error() string { return fmt.Sprintf("upstream failure: %v", e.Cause) }
func (e *UpstreamFailure) Unwrap() error { return e.Cause }

// ErrNotFound is returned by backends for GetOne on a path that does not
// exist. It is never surfaced for Delete, which is idempotent.
var ErrNotFound = errors.New("store: path not found")

// RunParallel fans a path stream out across up to parallelism concurrent
// calls to fetch, emitting results on the returned channel in the same
// order the paths were received. Backends share this helper so the
// order-preservation logic (spec §6.1's get_many_parallel contract) is
// implemented once.
func RunParallel(ctx context.Context, paths <-chan Path, parallelism int, fetch func(context.Context, Path) ([]byte, error)) <-chan Item {
	if parallelism < 1 {
		parallelism = 1
	}
	out := make(chan Item, parallelism)

	type slot struct {
		path Path
		done chan Item
	}
	slots := make(chan slot, parallelism)

	go func() {
		defer close(slots)
		for p := range paths {
			select {
			case slots <- slot{path: p, done: make(chan Item, 1)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var pending []slot
	go func() {
		defer close(out)
		sem := make(chan struct{}, parallelism)
		for s := range slots {
			pending = append(pending, s)
			sem <- struct{}{}
			go func(s slot) {
				defer func() { <-sem }()
				b, err := fetch(ctx, s.path)
				s.done <- Item{Path: s.path, Bytes: b, Err: err}
			}(s)
		}
		for _, s := range pending {
			select {
			case item := <-s.done:
				out <- item
			case <-ctx.Done():
				out <- Item{Path: s.path, Err: ctx.Err()}
			}
		}
	}()

	return out
}
