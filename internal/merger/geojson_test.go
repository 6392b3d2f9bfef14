package merger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/splitter"
)

func splitGeoJSON(t *testing.T, input string) []chunk.Chunk {
	t.Helper()
	out := make(chan chunk.Chunk, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- (splitter.GeoJSON{}).Split(context.Background(), strings.NewReader(input), out)
		close(out)
	}()
	var chunks []chunk.Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Split: %v", err)
	}
	return chunks
}

func TestGeoJSONMergeLoneFeatureIsBareObject(t *testing.T) {
	input := `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"a"}}`
	chunks := splitGeoJSON(t, input)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	var buf bytes.Buffer
	m := NewGeoJSON()
	if err := m.WriteChunk(chunks[0]); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := m.Close(&buf); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.String() != input {
		t.Errorf("expected bare object for a single unwrapped chunk, got %q", buf.String())
	}
}

func TestGeoJSONMergeFeatureCollectionRoundTrip(t *testing.T) {
	input := `{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","properties":{"id":1}},` +
		`{"type":"Feature","properties":{"id":2}}` +
		`]}`
	chunks := splitGeoJSON(t, input)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	var buf bytes.Buffer
	m := NewGeoJSON()
	for _, c := range chunks {
		if err := m.WriteChunk(c); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	if err := m.Close(&buf); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.String() != input {
		t.Errorf("got %q, want %q", buf.String(), input)
	}
}

func TestGeoJSONMergeGeometryCollectionRoundTrip(t *testing.T) {
	input := `{"type":"GeometryCollection","geometries":[` +
		`{"type":"Point","coordinates":[0,0]},` +
		`{"type":"LineString","coordinates":[[0,0],[1,1]]}` +
		`]}`
	chunks := splitGeoJSON(t, input)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	var buf bytes.Buffer
	m := NewGeoJSON()
	for _, c := range chunks {
		if err := m.WriteChunk(c); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	if err := m.Close(&buf); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.String() != input {
		t.Errorf("got %q, want %q", buf.String(), input)
	}
}

// TestGeoJSONMergeUnknownChunkStillEmbedded covers the spec's rule that
// unknown chunk types inside a collection are embedded as-is.
func TestGeoJSONMergeUnknownChunkStillEmbedded(t *testing.T) {
	input := `{"features":[{"properties":{"name":"a"}},{"type":"Feature","properties":{"name":"b"}}]}`
	chunks := splitGeoJSON(t, input)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Meta.GeoJSON.Type != chunk.GeoJSONUnknown {
		t.Fatalf("expected first chunk Unknown, got %q", chunks[0].Meta.GeoJSON.Type)
	}

	var buf bytes.Buffer
	m := NewGeoJSON()
	for _, c := range chunks {
		if err := m.WriteChunk(c); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	if err := m.Close(&buf); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := `{"type":"FeatureCollection","features":[{"properties":{"name":"a"}},{"type":"Feature","properties":{"name":"b"}}]}`
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestGeoJSONMergeEmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	m := NewGeoJSON()
	if err := m.Close(&buf); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for a merger that received no chunks, got %q", buf.String())
	}
}

func TestGeoJSONMergeRejectsNonGeoJSONChunk(t *testing.T) {
	m := NewGeoJSON()
	err := m.WriteChunk(chunk.Chunk{Bytes: []byte(`<a/>`), Meta: chunk.Meta{MimeType: "application/xml"}})
	if err == nil {
		t.Fatal("expected error for a chunk with no GeoJSON metadata")
	}
}
