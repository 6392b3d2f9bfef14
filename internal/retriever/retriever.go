// Package retriever drives query → index → store → merger: it resolves a
// compiled query to chunk metadata, fetches the underlying bytes in bounded
// parallelism, and streams them through the merger in the chunks' original
// source order.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/logging"
	"github.com/tobias93/georocket/internal/merger"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"
)

// DefaultParallelism is the default bounded concurrency for chunk fetches.
const DefaultParallelism = 32

// Config configures a Retriever.
type Config struct {
	Store     store.Store
	Index     index.Index
	Factories []query.Factory

	// Parallelism bounds concurrent store fetches. Defaults to
	// DefaultParallelism.
	Parallelism int

	Logger *slog.Logger
}

// Retriever answers queries against an Index and Store pair.
type Retriever struct {
	store       store.Store
	index       index.Index
	factories   []query.Factory
	parallelism int
	logger      *slog.Logger
}

// New creates a Retriever from cfg, applying a default for a zero
// Parallelism.
func New(cfg Config) *Retriever {
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Retriever{
		store:       cfg.Store,
		index:       cfg.Index,
		factories:   cfg.Factories,
		parallelism: parallelism,
		logger:      logging.Default(cfg.Logger).With("component", "retriever"),
	}
}

// Query parses and compiles a raw query string into an IndexQuery using the
// Retriever's configured factories, ready to pass to Retrieve.
func (r *Retriever) Query(raw string) (query.IndexQuery, error) {
	lq, err := query.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("retriever: parse query: %w", err)
	}
	iq, err := query.Compile(lq, r.factories)
	if err != nil {
		return nil, fmt.Errorf("retriever: compile query: %w", err)
	}
	return iq, nil
}

// Result summarizes one completed retrieval.
type Result struct {
	ChunkCount int
}

// ErrNoMatchingChunks is returned when q matches no chunk. Callers that want
// to distinguish "empty result" from a fetch failure can check for it with
// errors.Is.
var ErrNoMatchingChunks = errors.New("retriever: query matched no chunks")

// mergerSink is the subset of merger.XML and merger.GeoJSON's write paths
// the retriever needs; the two types differ only in when bytes actually
// reach w (XML streams immediately, GeoJSON buffers until Close).
type mergerSink interface {
	WriteChunk(c chunk.Chunk) error
	Close() error
}

// geoJSONSink adapts merger.GeoJSON's Close(w) to mergerSink's Close().
type geoJSONSink struct {
	m *merger.GeoJSON
	w io.Writer
}

func (s geoJSONSink) WriteChunk(c chunk.Chunk) error { return s.m.WriteChunk(c) }
func (s geoJSONSink) Close() error                   { return s.m.Close(s.w) }

// Retrieve resolves q against the index, fetches every matching chunk's
// bytes from the store in source order, and writes the merged document to
// w. Chunk meta is sorted by path before fetching: paths are
// chunk.ID-derived and monotonically increasing within one import, so a
// path sort recovers the chunks' original source order even for index
// backends whose GetMeta does not itself guarantee ordering.
func (r *Retriever) Retrieve(ctx context.Context, q query.IndexQuery, w io.Writer) (Result, error) {
	metaCh, metaErrc := r.index.GetMeta(ctx, q)
	var entries []index.MetaEntry
	for e := range metaCh {
		entries = append(entries, e)
	}
	if err := <-metaErrc; err != nil {
		return Result{}, fmt.Errorf("retriever: resolve meta: %w", err)
	}
	if len(entries) == 0 {
		return Result{}, ErrNoMatchingChunks
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	sink, err := sinkFor(entries[0].Meta, w)
	if err != nil {
		return Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)

	paths := make(chan store.Path, r.parallelism)
	g.Go(func() error {
		defer close(paths)
		for _, e := range entries {
			select {
			case paths <- e.Path:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	items := r.store.GetManyParallel(gctx, paths, r.parallelism)
	metaByPath := make(map[store.Path]chunk.Meta, len(entries))
	for _, e := range entries {
		metaByPath[e.Path] = e.Meta
	}

	count := 0
	g.Go(func() error {
		for item := range items {
			if item.Err != nil {
				return &store.UpstreamFailure{Cause: item.Err}
			}
			if err := sink.WriteChunk(chunk.Chunk{Bytes: item.Bytes, Meta: metaByPath[item.Path]}); err != nil {
				return fmt.Errorf("retriever: merge %s: %w", item.Path, err)
			}
			count++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := sink.Close(); err != nil {
		return Result{}, fmt.Errorf("retriever: close merger: %w", err)
	}

	r.logger.Info("retrieval complete", "chunks", count)
	return Result{ChunkCount: count}, nil
}

func sinkFor(m chunk.Meta, w io.Writer) (mergerSink, error) {
	switch {
	case m.IsXML():
		return merger.NewXML(w), nil
	case m.IsGeoJSON():
		return geoJSONSink{m: merger.NewGeoJSON(), w: w}, nil
	default:
		return nil, fmt.Errorf("retriever: chunk meta has neither xml nor geoJson variant")
	}
}
