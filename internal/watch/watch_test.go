package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tobias93/georocket/internal/importer"
	"github.com/tobias93/georocket/internal/index/memindex"
	"github.com/tobias93/georocket/internal/indexer"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store/filestore"
)

func newTestWatcher(t *testing.T, dir string) (*Watcher, *memindex.Index) {
	t.Helper()
	fs, err := filestore.New(filestore.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	idx, err := memindex.New(memindex.Config{})
	if err != nil {
		t.Fatalf("memindex.New: %v", err)
	}
	t.Cleanup(func() { fs.Close(); idx.Close() })

	imp := importer.New(importer.Config{
		Store:            fs,
		Index:            idx,
		Registry:         indexer.NewRegistry(),
		DebounceInterval: 5 * time.Millisecond,
	})
	return New(Config{Dir: dir, Layer: "watched", Importer: imp}), idx
}

func TestWatcherImportsPreExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "parcels.gml"), []byte(`<root><a id="1"/></root>`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, idx := newTestWatcher(t, dir)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForChunks(t, idx, 1)
	cancel()
	<-done
}

func TestWatcherImportsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	w, idx := newTestWatcher(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "new.json"), []byte(`{"type":"Feature","geometry":null,"properties":{}}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitForChunks(t, idx, 1)
	cancel()
	<-done
}

func TestWatcherSkipsUnrecognizedExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not geodata"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, idx := newTestWatcher(t, dir)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	<-done

	out, errc := idx.GetPaths(context.Background(), query.AllQuery{})
	var count int
	for range out {
		count++
	}
	if err := <-errc; err != nil {
		t.Fatalf("GetPaths: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 indexed chunks for unrecognized extension, got %d", count)
	}
}

func waitForChunks(t *testing.T, idx *memindex.Index, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out, errc := idx.GetPaths(context.Background(), query.AllQuery{})
		var count int
		for range out {
			count++
		}
		if err := <-errc; err != nil {
			t.Fatalf("GetPaths: %v", err)
		}
		if count >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d indexed chunks", want)
}
