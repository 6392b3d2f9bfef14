// Package memindex is an in-memory implementation of index.Index. It is
// the reference backend: correct and simple, used by tests and by small
// deployments that don't need a database-backed index. Chunk-meta identity
// is deduplicated with a pair of single-flight caches (spec §5,
// addedChunkMetaCache / loadedChunkMetaCache) so concurrent AddMany calls
// carrying identical Parents chains only pay the interning cost once.
package memindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/format"
	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/logging"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// record is one indexed chunk, stored by path.
type record struct {
	Path      store.Path
	Meta      chunk.Meta
	Doc       chunk.Document
	IndexedAt int64 // unix nanos; avoids time.Time in the msgpack wire format
}

// Index is an in-memory index.Index. Zero value is not usable; call New.
type Index struct {
	mu      sync.RWMutex
	records map[store.Path]*record
	order   []store.Path // insertion order, for bulk-ordering-stable iteration
	colls   map[string]struct{}

	// metaInterning dedups identical chunk.Meta values (e.g. the same
	// Parents chain repeated across many sibling chunks) behind a content
	// hash, so AddMany doesn't store a distinct copy per chunk.
	metaByHash map[string]chunk.Meta
	addedMeta  singleflight.Group // addedChunkMetaCache
	loadedMeta singleflight.Group // loadedChunkMetaCache

	snapshotPath string
	logger       *slog.Logger
}

// Config configures a memindex.Index.
type Config struct {
	// SnapshotPath, if non-empty, is loaded on New and rewritten on Close.
	SnapshotPath string
	Logger       *slog.Logger
}

// New creates an Index, loading SnapshotPath if it is set and exists.
func New(cfg Config) (*Index, error) {
	idx := &Index{
		records:      make(map[store.Path]*record),
		colls:        make(map[string]struct{}),
		metaByHash:   make(map[string]chunk.Meta),
		snapshotPath: cfg.SnapshotPath,
		logger:       logging.Default(cfg.Logger).With("component", "index", "type", "memory"),
	}
	if cfg.SnapshotPath != "" {
		if err := idx.loadSnapshot(cfg.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return idx, nil
}

func metaHash(m chunk.Meta) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// internMeta returns a canonical chunk.Meta equal to m, reusing a
// previously-interned value when one with the same content hash already
// exists. Concurrent calls for the same hash share one computation.
func (idx *Index) internMeta(m chunk.Meta) (chunk.Meta, error) {
	h, err := metaHash(m)
	if err != nil {
		return chunk.Meta{}, err
	}
	v, err, _ := idx.addedMeta.Do(h, func() (any, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if canonical, ok := idx.metaByHash[h]; ok {
			return canonical, nil
		}
		idx.metaByHash[h] = m
		return m, nil
	})
	if err != nil {
		return chunk.Meta{}, err
	}
	return v.(chunk.Meta), nil
}

// AddMany implements index.Index.
func (idx *Index) AddMany(ctx context.Context, entries []index.Entry) error {
	for _, e := range entries {
		meta, err := idx.internMeta(e.Meta)
		if err != nil {
			return &store.UpstreamFailure{Cause: err}
		}
		doc := e.Document.Clone()
		if doc == nil {
			doc = chunk.Document{}
		}
		if len(e.IndexMeta.Tags) > 0 {
			doc["tags"] = maps.Clone(e.IndexMeta.Tags)
		}
		if len(e.IndexMeta.Properties) > 0 {
			doc["props"] = maps.Clone(e.IndexMeta.Properties)
		}

		idx.mu.Lock()
		if _, exists := idx.records[e.Path]; !exists {
			idx.order = append(idx.order, e.Path)
		}
		idx.records[e.Path] = &record{Path: e.Path, Meta: meta, Doc: doc, IndexedAt: e.IndexedAt.UnixNano()}
		idx.mu.Unlock()
	}
	return nil
}

func (idx *Index) snapshot() []*record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*record, 0, len(idx.order))
	for _, p := range idx.order {
		if r, ok := idx.records[p]; ok {
			out = append(out, r)
		}
	}
	return out
}

// GetMeta implements index.Index.
func (idx *Index) GetMeta(ctx context.Context, q query.IndexQuery) (<-chan index.MetaEntry, <-chan error) {
	out := make(chan index.MetaEntry)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, r := range idx.snapshot() {
			if !matches(r.Doc, q) {
				continue
			}
			select {
			case out <- index.MetaEntry{Path: r.Path, Meta: r.Meta}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// GetDistinctMeta implements index.Index.
func (idx *Index) GetDistinctMeta(ctx context.Context, q query.IndexQuery) (<-chan chunk.Meta, <-chan error) {
	out := make(chan chunk.Meta)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		seen := make(map[string]struct{})
		for _, r := range idx.snapshot() {
			if !matches(r.Doc, q) {
				continue
			}
			h, err := metaHash(r.Meta)
			if err != nil {
				errc <- &store.UpstreamFailure{Cause: err}
				return
			}
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			select {
			case out <- r.Meta:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// GetPaths implements index.Index.
func (idx *Index) GetPaths(ctx context.Context, q query.IndexQuery) (<-chan store.Path, <-chan error) {
	out := make(chan store.Path)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, r := range idx.snapshot() {
			if !matches(r.Doc, q) {
				continue
			}
			select {
			case out <- r.Path:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// Delete implements index.Index.
func (idx *Index) Delete(ctx context.Context, q query.IndexQuery) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.order = slices.DeleteFunc(idx.order, func(p store.Path) bool {
		r, ok := idx.records[p]
		if !ok {
			return true
		}
		if matches(r.Doc, q) {
			delete(idx.records, p)
			return true
		}
		return false
	})
	return nil
}

// DeletePaths implements index.Index. Idempotent.
func (idx *Index) DeletePaths(ctx context.Context, paths []store.Path) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	toDelete := make(map[store.Path]struct{}, len(paths))
	for _, p := range paths {
		toDelete[p] = struct{}{}
		delete(idx.records, p)
	}
	idx.order = slices.DeleteFunc(idx.order, func(p store.Path) bool {
		_, ok := toDelete[p]
		return ok
	})
	return nil
}

func (idx *Index) mutateMatching(q query.IndexQuery, fn func(doc chunk.Document)) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range idx.records {
		if matches(r.Doc, q) {
			fn(r.Doc)
		}
	}
	return nil
}

// AddTags implements index.Index.
func (idx *Index) AddTags(ctx context.Context, q query.IndexQuery, tags []string) error {
	return idx.mutateMatching(q, func(doc chunk.Document) {
		set, _ := doc["tags"].(map[string]struct{})
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			set[t] = struct{}{}
		}
		doc["tags"] = set
	})
}

// RemoveTags implements index.Index.
func (idx *Index) RemoveTags(ctx context.Context, q query.IndexQuery, tags []string) error {
	return idx.mutateMatching(q, func(doc chunk.Document) {
		set, _ := doc["tags"].(map[string]struct{})
		for _, t := range tags {
			delete(set, t)
		}
	})
}

// SetProperties implements index.Index.
func (idx *Index) SetProperties(ctx context.Context, q query.IndexQuery, props map[string]string) error {
	return idx.mutateMatching(q, func(doc chunk.Document) {
		m, _ := doc["props"].(map[string]string)
		if m == nil {
			m = make(map[string]string, len(props))
		}
		for k, v := range props {
			m[k] = v
		}
		doc["props"] = m
	})
}

// RemoveProperties implements index.Index.
func (idx *Index) RemoveProperties(ctx context.Context, q query.IndexQuery, keys []string) error {
	return idx.mutateMatching(q, func(doc chunk.Document) {
		m, _ := doc["props"].(map[string]string)
		for _, k := range keys {
			delete(m, k)
		}
	})
}

func (idx *Index) distinctValues(ctx context.Context, q query.IndexQuery, field string, key string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		seen := make(map[string]struct{})
		for _, r := range idx.snapshot() {
			if !matches(r.Doc, q) {
				continue
			}
			m, ok := r.Doc[field].(map[string]string)
			if !ok {
				continue
			}
			v, ok := m[key]
			if !ok {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			select {
			case out <- v:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// GetPropertyValues implements index.Index.
func (idx *Index) GetPropertyValues(ctx context.Context, q query.IndexQuery, key string) (<-chan string, <-chan error) {
	return idx.distinctValues(ctx, q, "props", key)
}

// GetAttributeValues implements index.Index.
func (idx *Index) GetAttributeValues(ctx context.Context, q query.IndexQuery, key string) (<-chan string, <-chan error) {
	return idx.distinctValues(ctx, q, "genAttrs", key)
}

// GetCollections implements index.Index.
func (idx *Index) GetCollections(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	idx.mu.RLock()
	names := slices.Sorted(maps.Keys(idx.colls))
	idx.mu.RUnlock()
	go func() {
		defer close(out)
		defer close(errc)
		for _, n := range names {
			select {
			case out <- n:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

// AddCollection implements index.Index.
func (idx *Index) AddCollection(ctx context.Context, name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.colls[name] = struct{}{}
	return nil
}

// ExistsCollection implements index.Index.
func (idx *Index) ExistsCollection(ctx context.Context, name string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.colls[name]
	return ok, nil
}

// DeleteCollection implements index.Index. Idempotent.
func (idx *Index) DeleteCollection(ctx context.Context, name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.colls, name)
	return nil
}

// Close implements index.Index: writes a snapshot if SnapshotPath was
// configured. Safe to call more than once (a second call simply rewrites
// the same snapshot).
func (idx *Index) Close() error {
	if idx.snapshotPath == "" {
		return nil
	}
	return idx.writeSnapshot(idx.snapshotPath)
}

// wireSnapshot is the msgpack-encoded form persisted to disk.
type wireSnapshot struct {
	Records     []*record `msgpack:"records"`
	Collections []string  `msgpack:"collections"`
}

func (idx *Index) writeSnapshot(path string) error {
	idx.mu.RLock()
	snap := wireSnapshot{
		Records:     make([]*record, 0, len(idx.order)),
		Collections: slices.Sorted(maps.Keys(idx.colls)),
	}
	for _, p := range idx.order {
		if r, ok := idx.records[p]; ok {
			snap.Records = append(snap.Records, r)
		}
	}
	idx.mu.RUnlock()

	body, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memindex: encode snapshot: %w", err)
	}
	hdr := format.Header{Type: format.TypeIndexSnapshot, Version: 1}
	hdrBuf := hdr.Encode()

	tmp, err := os.CreateTemp(pathDir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(hdrBuf[:]); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// loadSnapshot restores state from a previously-written snapshot. Each
// decoded record's Meta is routed through loadedMeta so repeated identical
// Meta values in the snapshot (e.g. shared Parents chains) are interned
// exactly once even when loaded concurrently with live AddMany calls.
func (idx *Index) loadSnapshot(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) < format.HeaderSize {
		return format.ErrHeaderTooSmall
	}
	if _, err := format.DecodeAndValidate(b[:format.HeaderSize], format.TypeIndexSnapshot, 1); err != nil {
		return err
	}

	var snap wireSnapshot
	if err := msgpack.Unmarshal(b[format.HeaderSize:], &snap); err != nil {
		return fmt.Errorf("memindex: decode snapshot: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range snap.Records {
		meta, err := idx.loadMetaLocked(r.Meta)
		if err != nil {
			return err
		}
		r.Meta = meta
		if _, exists := idx.records[r.Path]; !exists {
			idx.order = append(idx.order, r.Path)
		}
		idx.records[r.Path] = r
	}
	for _, c := range snap.Collections {
		idx.colls[c] = struct{}{}
	}
	return nil
}

// loadMetaLocked must be called with idx.mu held; it still single-flights
// the hash computation itself (cheap but repeated for every record).
func (idx *Index) loadMetaLocked(m chunk.Meta) (chunk.Meta, error) {
	h, err := metaHash(m)
	if err != nil {
		return chunk.Meta{}, err
	}
	v, err, _ := idx.loadedMeta.Do(h, func() (any, error) {
		if canonical, ok := idx.metaByHash[h]; ok {
			return canonical, nil
		}
		idx.metaByHash[h] = m
		return m, nil
	})
	if err != nil {
		return chunk.Meta{}, err
	}
	return v.(chunk.Meta), nil
}

func pathDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
