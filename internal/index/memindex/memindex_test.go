package memindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/index"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/store"
)

func drainPaths(t *testing.T, out <-chan store.Path, errc <-chan error) []store.Path {
	t.Helper()
	var paths []store.Path
	for p := range out {
		paths = append(paths, p)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return paths
}

func addOne(t *testing.T, idx *Index, path store.Path, doc chunk.Document) {
	t.Helper()
	entry := index.Entry{Path: path, Document: doc, IndexedAt: time.Unix(0, 0)}
	if err := idx.AddMany(context.Background(), []index.Entry{entry}); err != nil {
		t.Fatalf("AddMany(%s): %v", path, err)
	}
}

func TestAddManyAndGetPathsAll(t *testing.T) {
	idx, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	addOne(t, idx, "p1", chunk.Document{"gmlIds": []string{"f1"}})
	addOne(t, idx, "p2", chunk.Document{"gmlIds": []string{"f2"}})

	out, errc := idx.GetPaths(ctx, query.AllQuery{})
	paths := drainPaths(t, out, errc)
	if len(paths) != 2 || paths[0] != "p1" || paths[1] != "p2" {
		t.Errorf("expected [p1 p2] in insertion order, got %v", paths)
	}
}

func TestGetPathsContainsQuery(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{"gmlIds": []string{"f1"}})
	addOne(t, idx, "p2", chunk.Document{"gmlIds": []string{"f2"}})

	out, errc := idx.GetPaths(ctx, query.ContainsQuery{Field: "gmlIds", Value: "f2"})
	paths := drainPaths(t, out, errc)
	if len(paths) != 1 || paths[0] != "p2" {
		t.Errorf("expected [p2], got %v", paths)
	}
}

func TestGetPathsBboxWithin(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{"bbox": []float64{1, 1, 2, 2}})
	addOne(t, idx, "p2", chunk.Document{"bbox": []float64{10, 10, 20, 20}})

	out, errc := idx.GetPaths(ctx, query.ElementsWithinQuery{Bbox: [4]float64{0, 0, 5, 5}})
	paths := drainPaths(t, out, errc)
	if len(paths) != 1 || paths[0] != "p1" {
		t.Errorf("expected [p1], got %v", paths)
	}
}

func TestDeletePathsIsIdempotent(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{})

	if err := idx.DeletePaths(ctx, []store.Path{"p1"}); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := idx.DeletePaths(ctx, []store.Path{"p1"}); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	out, errc := idx.GetPaths(ctx, query.AllQuery{})
	if paths := drainPaths(t, out, errc); len(paths) != 0 {
		t.Errorf("expected no paths after delete, got %v", paths)
	}
}

func TestDeleteByQuery(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{"gmlIds": []string{"f1"}})
	addOne(t, idx, "p2", chunk.Document{"gmlIds": []string{"f2"}})

	if err := idx.Delete(ctx, query.ContainsQuery{Field: "gmlIds", Value: "f1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	out, errc := idx.GetPaths(ctx, query.AllQuery{})
	paths := drainPaths(t, out, errc)
	if len(paths) != 1 || paths[0] != "p2" {
		t.Errorf("expected [p2] after delete-by-query, got %v", paths)
	}
}

func TestTagsAndPropertiesLifecycle(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{})

	if err := idx.AddTags(ctx, query.AllQuery{}, []string{"important"}); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if err := idx.SetProperties(ctx, query.AllQuery{}, map[string]string{"owner": "acme"}); err != nil {
		t.Fatalf("SetProperties: %v", err)
	}

	out, errc := idx.GetPropertyValues(ctx, query.AllQuery{}, "owner")
	var values []string
	for v := range out {
		values = append(values, v)
	}
	if err := <-errc; err != nil {
		t.Fatalf("GetPropertyValues: %v", err)
	}
	if len(values) != 1 || values[0] != "acme" {
		t.Errorf("expected [acme], got %v", values)
	}

	out2, errc2 := idx.GetPaths(ctx, query.ContainsQuery{Field: "tags", Value: "important"})
	if paths := drainPaths(t, out2, errc2); len(paths) != 1 {
		t.Errorf("expected 1 tagged path, got %v", paths)
	}

	if err := idx.RemoveTags(ctx, query.AllQuery{}, []string{"important"}); err != nil {
		t.Fatalf("RemoveTags: %v", err)
	}
	out3, errc3 := idx.GetPaths(ctx, query.ContainsQuery{Field: "tags", Value: "important"})
	if paths := drainPaths(t, out3, errc3); len(paths) != 0 {
		t.Errorf("expected no tagged paths after removal, got %v", paths)
	}
}

func TestCollectionsLifecycle(t *testing.T) {
	idx, _ := New(Config{})
	ctx := context.Background()
	if err := idx.AddCollection(ctx, "buildings"); err != nil {
		t.Fatalf("AddCollection: %v", err)
	}
	ok, err := idx.ExistsCollection(ctx, "buildings")
	if err != nil || !ok {
		t.Fatalf("expected collection to exist, ok=%v err=%v", ok, err)
	}
	if err := idx.DeleteCollection(ctx, "buildings"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	ok, err = idx.ExistsCollection(ctx, "buildings")
	if err != nil || ok {
		t.Fatalf("expected collection gone, ok=%v err=%v", ok, err)
	}
	if err := idx.DeleteCollection(ctx, "buildings"); err != nil {
		t.Fatalf("idempotent DeleteCollection: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	idx, err := New(Config{SnapshotPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	addOne(t, idx, "p1", chunk.Document{"gmlIds": []string{"f1"}})
	if err := idx.AddCollection(ctx, "buildings"); err != nil {
		t.Fatalf("AddCollection: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(Config{SnapshotPath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	out, errc := reopened.GetPaths(ctx, query.AllQuery{})
	paths := drainPaths(t, out, errc)
	if len(paths) != 1 || paths[0] != "p1" {
		t.Errorf("expected [p1] after reload, got %v", paths)
	}
	ok, err := reopened.ExistsCollection(ctx, "buildings")
	if err != nil || !ok {
		t.Fatalf("expected collection to survive reload, ok=%v err=%v", ok, err)
	}
}
