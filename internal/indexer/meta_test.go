package indexer

import (
	"testing"
	"time"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/query"
)

func TestChunkMetaIndexerContributesFilenameAndCorrelation(t *testing.T) {
	idx := ChunkMetaIndexer{}
	doc := idx.OnChunk("p1", chunk.Meta{}, chunk.IndexMeta{
		Filename:      "parcels.gml",
		CorrelationID: "req-1",
		Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if doc["filename"] != "parcels.gml" {
		t.Errorf("expected filename, got %#v", doc["filename"])
	}
	if doc["correlationId"] != "req-1" {
		t.Errorf("expected correlationId, got %#v", doc["correlationId"])
	}
	if doc["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("expected formatted timestamp, got %#v", doc["timestamp"])
	}
}

func TestChunkMetaIndexerOmitsZeroFields(t *testing.T) {
	idx := ChunkMetaIndexer{}
	doc := idx.OnChunk("p1", chunk.Meta{}, chunk.IndexMeta{})
	if len(doc) != 0 {
		t.Errorf("expected empty document for zero IndexMeta, got %#v", doc)
	}
}

func TestFilenameGlobIndexerFactoryCompilesGlobTerm(t *testing.T) {
	f := FilenameGlobIndexerFactory{}
	lq, err := query.Parse("filename:*.gml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	compiled, err := query.Compile(lq, []query.Factory{f})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	g, ok := compiled.(query.GlobQuery)
	if !ok || g.Field != "filename" || g.Pattern != "*.gml" {
		t.Fatalf("expected GlobQuery(filename,*.gml), got %#v", compiled)
	}
}

func TestGenericAttributeIndexerFactoryCompilesGenKeyGlob(t *testing.T) {
	f := GenericAttributeIndexerFactory{}
	lq, err := query.Parse("gen:addr*")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	compiled, err := query.Compile(lq, []query.Factory{f})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	g, ok := compiled.(query.GlobKeysQuery)
	if !ok || g.Field != "genAttrs" || g.Pattern != "addr*" {
		t.Fatalf("expected GlobKeysQuery(genAttrs,addr*), got %#v", compiled)
	}
}
