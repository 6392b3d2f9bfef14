// Package importer drives the import pipeline (spec §4.G): splitter → store
// → batched index writes. It owns the only two suspension points unique to
// import (store.Add, the debounce timer) beyond the ones store/index
// themselves introduce.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/indexer"
	"github.com/tobias93/georocket/internal/logging"
	"github.com/tobias93/georocket/internal/splitter"
	"github.com/tobias93/georocket/internal/store"
)

// Default tuning values (spec §4.G, §5).
const (
	DefaultMaxBulkSize      = 100
	DefaultDebounceInterval = 100 * time.Millisecond
	DefaultChannelCapacity  = 8
)

// Config configures an Importer.
type Config struct {
	Store    store.Store
	Index    index.Index
	Registry *indexer.Registry

	// MaxBulkSize triggers an eager flush once this many chunks are queued.
	// Defaults to DefaultMaxBulkSize.
	MaxBulkSize int

	// DebounceInterval is the trailing-edge debounce before a partial batch
	// is flushed. Defaults to DefaultDebounceInterval.
	DebounceInterval time.Duration

	Logger *slog.Logger
}

// Importer drives one import pipeline instance. Not safe for concurrent use
// by multiple goroutines on the same instance; create one Importer per
// concurrent import, or reuse one across sequential calls to Import.
type Importer struct {
	store            store.Store
	index            index.Index
	registry         *indexer.Registry
	maxBulkSize      int
	debounceInterval time.Duration
	logger           *slog.Logger
}

// New creates an Importer from cfg, applying defaults for zero-valued
// tuning fields.
func New(cfg Config) *Importer {
	maxBulk := cfg.MaxBulkSize
	if maxBulk <= 0 {
		maxBulk = DefaultMaxBulkSize
	}
	debounce := cfg.DebounceInterval
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &Importer{
		store:            cfg.Store,
		index:            cfg.Index,
		registry:         cfg.Registry,
		maxBulkSize:      maxBulk,
		debounceInterval: debounce,
		logger:           logging.Default(cfg.Logger).With("component", "importer"),
	}
}

// Result summarizes one completed import.
type Result struct {
	ChunkCount    int
	ElapsedMillis int64
}

// queuedItem is one stored chunk awaiting its batched index write.
type queuedItem struct {
	path      store.Path
	bytes     []byte
	chunkMeta chunk.Meta
}

// Import splits r according to mimeType, stores each chunk in source order,
// and drains the resulting queue through the indexer registry in batches of
// MaxBulkSize or on a trailing-edge debounce timer, whichever comes first.
// A final flush runs at stream EOF. On cancellation, Import flushes
// everything already stored before returning ctx.Err(); chunks already
// committed to the store are never rolled back.
func (imp *Importer) Import(ctx context.Context, r io.Reader, mimeType string, indexMeta chunk.IndexMeta, layer string) (Result, error) {
	start := time.Now()

	split, err := splitterFor(mimeType)
	if err != nil {
		return Result{}, err
	}

	chunkCh := make(chan chunk.Chunk, DefaultChannelCapacity)
	splitErrCh := make(chan error, 1)
	go func() {
		defer close(chunkCh)
		splitErrCh <- split.Split(ctx, r, chunkCh)
	}()

	var queue []queuedItem
	count := 0

	flush := func() error {
		if len(queue) == 0 {
			return nil
		}
		entries := make([]index.Entry, 0, len(queue))
		for _, item := range queue {
			doc, err := imp.registry.Run(string(item.path), item.bytes, item.chunkMeta, indexMeta)
			if err != nil {
				return fmt.Errorf("importer: index %s: %w", item.path, err)
			}
			entries = append(entries, index.Entry{
				Path:      item.path,
				Document:  doc,
				Meta:      item.chunkMeta,
				IndexMeta: indexMeta,
				IndexedAt: time.Now(),
			})
		}
		if err := imp.index.AddMany(ctx, entries); err != nil {
			return fmt.Errorf("importer: flush: %w", err)
		}
		queue = queue[:0]
		return nil
	}

	timer := time.NewTimer(imp.debounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	timerRunning := false
	defer timer.Stop()

	resetTimer := func() {
		if timerRunning && !timer.Stop() {
			<-timer.C
		}
		timer.Reset(imp.debounceInterval)
		timerRunning = true
	}
	stopTimer := func() {
		if timerRunning {
			if !timer.Stop() {
				<-timer.C
			}
			timerRunning = false
		}
	}

	open := true
	for open {
		select {
		case c, ok := <-chunkCh:
			if !ok {
				open = false
				continue
			}
			path, err := imp.store.Add(ctx, c.Bytes, c.Meta, indexMeta, layer)
			if err != nil {
				stopTimer()
				return Result{}, &store.UpstreamFailure{Cause: err}
			}
			count++
			queue = append(queue, queuedItem{path: path, bytes: c.Bytes, chunkMeta: c.Meta})
			if len(queue) >= imp.maxBulkSize {
				stopTimer()
				if err := flush(); err != nil {
					return Result{}, err
				}
			} else {
				resetTimer()
			}
		case <-timer.C:
			timerRunning = false
			if err := flush(); err != nil {
				return Result{}, err
			}
		case <-ctx.Done():
			stopTimer()
			_ = flush()
			return Result{}, ctx.Err()
		}
	}
	stopTimer()

	splitErr := <-splitErrCh
	// Whatever reached the store before the splitter failed is still on
	// disk (splitter.MalformedInput leaves prior chunks in place), so it is
	// flushed to the index too rather than left as an orphaned, unqueryable
	// blob.
	if err := flush(); err != nil {
		return Result{}, err
	}
	if splitErr != nil {
		return Result{}, splitErr
	}

	result := Result{ChunkCount: count, ElapsedMillis: time.Since(start).Milliseconds()}
	imp.logger.Info("import complete", "chunks", result.ChunkCount, "elapsed_ms", result.ElapsedMillis, "layer", layer)
	return result, nil
}

func splitterFor(mimeType string) (splitter.Splitter, error) {
	kind, err := indexer.KindForMimeType(mimeType)
	if err != nil {
		return nil, err
	}
	switch kind {
	case indexer.EventKindXML:
		return splitter.XML{}, nil
	case indexer.EventKindJSON:
		return splitter.GeoJSON{}, nil
	default:
		return nil, &indexer.UnsupportedMimeType{MimeType: mimeType}
	}
}
