// Package watch continuously imports files dropped into a directory,
// feeding each one whole to an importer.Importer as it appears. It is an
// operational surface the teacher's ingesters don't have a direct analogue
// for; its fsnotify event loop follows the shape of the teacher's tail
// ingester (watch for Create, debounce on Write, ignore everything else).
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/importer"
	"github.com/tobias93/georocket/internal/logging"
)

// settleDelay is how long a file must go unmodified before it is imported,
// so a writer still appending to it isn't read mid-write.
const settleDelay = 500 * time.Millisecond

// extMimeTypes maps the file extensions GeoRocket recognizes to the mime
// type the importer's splitter selection switches on.
var extMimeTypes = map[string]string{
	".xml":     "application/xml",
	".gml":     "application/xml",
	".json":    "application/json",
	".geojson": "application/json",
}

// Config configures a Watcher.
type Config struct {
	Dir      string
	Layer    string
	Importer *importer.Importer
	Logger   *slog.Logger
}

// Watcher imports every file dropped into a directory. Subdirectories are
// not watched.
type Watcher struct {
	dir      string
	layer    string
	importer *importer.Importer
	logger   *slog.Logger
}

// New creates a Watcher from cfg.
func New(cfg Config) *Watcher {
	return &Watcher{
		dir:      cfg.Dir,
		layer:    cfg.Layer,
		importer: cfg.Importer,
		logger:   logging.Default(cfg.Logger).With("component", "watch", "dir", cfg.Dir),
	}
}

// Run watches Dir until ctx is cancelled, importing each file that appears
// (and settles) as well as every file already present at startup.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch: watch %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watch: read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	imports := make(chan string)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path := <-imports:
			delete(pending, path)
			w.importFile(ctx, path)

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if t, ok := pending[ev.Name]; ok {
				t.Stop()
			}
			pending[ev.Name] = time.AfterFunc(settleDelay, func() {
				select {
				case imports <- ev.Name:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// schedule queues path for immediate import, used for files already present
// when Run starts.
func (w *Watcher) schedule(ctx context.Context, path string) {
	go w.importFile(ctx, path)
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	mimeType, ok := mimeTypeForPath(path)
	if !ok {
		w.logger.Debug("skipping file with unrecognized extension", "path", path)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Error("open dropped file", "path", path, "error", err)
		}
		return
	}
	defer func() { _ = f.Close() }()

	indexMeta := chunk.IndexMeta{
		Filename:  filepath.Base(path),
		Timestamp: time.Now(),
	}

	result, err := w.importer.Import(ctx, f, mimeType, indexMeta, w.layer)
	if err != nil {
		w.logger.Error("import dropped file", "path", path, "error", err)
		return
	}
	w.logger.Info("imported dropped file", "path", path, "chunks", result.ChunkCount)
}

func mimeTypeForPath(path string) (string, bool) {
	mt, ok := extMimeTypes[strings.ToLower(filepath.Ext(path))]
	return mt, ok
}
