// Package index defines GeoRocket's required index contract (spec §6.2):
// the structured-document counterpart to package store. A concrete backend
// stores one chunk.Document (keyed by store.Path) per chunk and answers
// query.IndexQuery trees compiled by package query.
package index

import (
	"context"
	"time"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"
)

// MetaEntry pairs a path with the chunk metadata recorded for it at index
// time, the unit streamed back by GetMeta.
type MetaEntry struct {
	Path store.Path
	Meta chunk.Meta
}

// Index is GeoRocket's required index backend contract (spec §6.2). A
// backend must be safe for concurrent calls from multiple pipelines.
type Index interface {
	// AddMany indexes a batch of (path, document) pairs. Paths must be
	// indexed in call order (spec testable property 6: bulk ordering).
	AddMany(ctx context.Context, docs []Entry) error

	// GetMeta streams (path, chunk_meta) for every chunk matching query, in
	// no particular guaranteed order beyond per-backend stability.
	GetMeta(ctx context.Context, q query.IndexQuery) (<-chan MetaEntry, <-chan error)

	// GetDistinctMeta streams each distinct chunk_meta value once.
	GetDistinctMeta(ctx context.Context, q query.IndexQuery) (<-chan chunk.Meta, <-chan error)

	// GetPaths streams every path matching query.
	GetPaths(ctx context.Context, q query.IndexQuery) (<-chan store.Path, <-chan error)

	// Delete removes every document matching query.
	Delete(ctx context.Context, q query.IndexQuery) error

	// DeletePaths removes documents by path. Idempotent: unknown paths are
	// silent successes.
	DeletePaths(ctx context.Context, paths []store.Path) error

	AddTags(ctx context.Context, q query.IndexQuery, tags []string) error
	RemoveTags(ctx context.Context, q query.IndexQuery, tags []string) error
	SetProperties(ctx context.Context, q query.IndexQuery, props map[string]string) error
	RemoveProperties(ctx context.Context, q query.IndexQuery, keys []string) error

	// GetPropertyValues streams the distinct values of props[key] across
	// every chunk matching query.
	GetPropertyValues(ctx context.Context, q query.IndexQuery, key string) (<-chan string, <-chan error)

	// GetAttributeValues streams the distinct values of genAttrs[key]
	// across every chunk matching query.
	GetAttributeValues(ctx context.Context, q query.IndexQuery, key string) (<-chan string, <-chan error)

	GetCollections(ctx context.Context) (<-chan string, <-chan error)
	AddCollection(ctx context.Context, name string) error
	ExistsCollection(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) error

	// Close flushes any pending state (e.g. a snapshot) and releases
	// resources. Safe to call more than once.
	Close() error
}

// Entry is one unit AddMany indexes: the chunk's store path, its document
// (the indexer framework's merged result), its persisted metadata, and the
// import-time attributes whose tags and properties seed the document.
type Entry struct {
	Path      store.Path
	Document  chunk.Document
	Meta      chunk.Meta
	IndexMeta chunk.IndexMeta
	IndexedAt time.Time
}
