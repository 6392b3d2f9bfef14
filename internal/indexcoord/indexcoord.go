// Package indexcoord composes a store.Store and an index.Index behind a
// single delete-by-query operation. Spec §9's design notes flag the
// source's AbstractIndex/IndexedStore inheritance as a smell; this is the
// composition replacement: a plain struct holding both references, with no
// inheritance relationship between them.
package indexcoord

import (
	"context"
	"fmt"

	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"
)

// Coordinator ties a Store and an Index together for operations that must
// touch both consistently, namely delete-by-query.
type Coordinator struct {
	Store store.Store
	Index index.Index
}

// New returns a Coordinator over the given store and index.
func New(s store.Store, idx index.Index) *Coordinator {
	return &Coordinator{Store: s, Index: idx}
}

// DeleteByQuery removes every chunk matching q from both the index and the
// store: it first resolves q to paths via the index, then deletes those
// paths from the store, then deletes them from the index. Doing the index
// delete last means a crash between the two leaves only an orphaned index
// row (safe; GetOne on the missing blob fails loudly) rather than an
// orphaned blob with no index entry (invisible, unrecoverable via query).
func (c *Coordinator) DeleteByQuery(ctx context.Context, q query.IndexQuery) error {
	pathsCh, errc := c.Index.GetPaths(ctx, q)

	var paths []store.Path
	for p := range pathsCh {
		paths = append(paths, p)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("indexcoord: resolve paths: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}

	if err := c.Store.Delete(ctx, paths); err != nil {
		return fmt.Errorf("indexcoord: delete blobs: %w", err)
	}
	if err := c.Index.DeletePaths(ctx, paths); err != nil {
		return fmt.Errorf("indexcoord: delete index rows: %w", err)
	}
	return nil
}

// Close closes both the store and the index, returning the first error
// encountered (but always attempting both).
func (c *Coordinator) Close() error {
	storeErr := c.Store.Close()
	indexErr := c.Index.Close()
	if storeErr != nil {
		return storeErr
	}
	return indexErr
}
