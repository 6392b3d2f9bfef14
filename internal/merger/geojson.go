package merger

import (
	"fmt"
	"io"

	"github.com/tobias93/georocket/internal/chunk"
)

// GeoJSON merges a source-ordered sequence of GeoJSON chunks into a
// single document. The chunks' own parentFieldName / type metadata
// decide whether the wrapper is a FeatureCollection, a GeometryCollection,
// or (for a single chunk) no wrapper at all.
//
// GeoJSON requires buffering the whole chunk sequence (unlike the XML
// merger's streaming close-and-reopen), because the collection kind isn't
// known until every chunk has been seen: an "array vs. bare object"
// decision made by the *first* chunk would be wrong if a later chunk
// turns out to need a collection wrapper.
type GeoJSON struct {
	chunks []chunk.Chunk
}

// NewGeoJSON returns an empty GeoJSON merger.
func NewGeoJSON() *GeoJSON {
	return &GeoJSON{}
}

// WriteChunk buffers one chunk for later emission.
func (m *GeoJSON) WriteChunk(c chunk.Chunk) error {
	if c.Meta.GeoJSON == nil {
		return fmt.Errorf("merger: chunk has no GeoJSON metadata")
	}
	m.chunks = append(m.chunks, c)
	return nil
}

// Close writes the buffered chunks to w as a single GeoJSON value and
// resets the merger.
func (m *GeoJSON) Close(w io.Writer) error {
	defer func() { m.chunks = nil }()

	if len(m.chunks) == 0 {
		return nil
	}
	if len(m.chunks) == 1 {
		c := m.chunks[0]
		if c.Meta.GeoJSON.ParentFieldName == "" {
			_, err := w.Write(c.Bytes)
			return err
		}
	}

	isCollection := false
	for _, c := range m.chunks {
		if c.Meta.GeoJSON.Type == chunk.GeoJSONFeature || c.Meta.GeoJSON.ParentFieldName == "features" {
			isCollection = true
			break
		}
	}

	var header, footer string
	if isCollection {
		header, footer = `{"type":"FeatureCollection","features":[`, `]}`
	} else {
		header, footer = `{"type":"GeometryCollection","geometries":[`, `]}`
	}

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for i, c := range m.chunks {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := w.Write(c.Bytes); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, footer)
	return err
}
