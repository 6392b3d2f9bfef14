// Package indexer runs the set of registered indexers over one chunk's
// event stream and aggregates their output into a single index document.
package indexer

import (
	"fmt"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/xmlstream"
)

// EventKind identifies which event-source kind a chunk was split from.
type EventKind int

const (
	EventKindXML EventKind = iota
	EventKindJSON
)

// UnsupportedMimeType is returned when a chunk's MimeType does not map to
// a known event-source kind.
type UnsupportedMimeType struct {
	MimeType string
}

func (e *UnsupportedMimeType) Error() string {
	return fmt.Sprintf("indexer: unsupported mime type %q", e.MimeType)
}

// KindForMimeType maps a chunk's mime type to the event-source kind the
// framework should stream it through.
func KindForMimeType(mimeType string) (EventKind, error) {
	switch mimeType {
	case "application/xml", "text/xml":
		return EventKindXML, nil
	case "application/json":
		return EventKindJSON, nil
	default:
		return 0, &UnsupportedMimeType{MimeType: mimeType}
	}
}

// Indexer accumulates state across one chunk's event stream and produces a
// partial index document once the stream is exhausted.
type Indexer interface {
	MakeResult() chunk.Document
}

// XMLIndexer is an Indexer that consumes xmlstream.Events.
type XMLIndexer interface {
	Indexer
	OnXMLEvent(ev xmlstream.Event)
}

// JSONIndexer is an Indexer that consumes jsonstream.Events.
type JSONIndexer interface {
	Indexer
	OnJSONEvent(ev jsonstream.Event)
}

// CRSAware is implemented by indexers that need a fallback coordinate
// reference system when the chunk's IndexMeta does not carry one.
type CRSAware interface {
	SetFallbackCRS(crs string)
}

// ChunkBytesAware is implemented by indexers that need direct access to a
// chunk's raw bytes alongside its streamed events, e.g. to re-parse a
// byte-ranged sub-document located while streaming.
type ChunkBytesAware interface {
	SetChunkBytes(b []byte)
}

// MetaIndexer is a stateless indexer that contributes fields derived only
// from a chunk's metadata, without streaming its events.
type MetaIndexer interface {
	OnChunk(path string, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta) chunk.Document
}

// Factory creates per-chunk Indexer instances and participates in query
// compilation. It embeds query.Factory so a slice of Factory values can be
// adapted into []query.Factory for Compile.
type Factory interface {
	query.Factory

	// Name identifies the factory for logging and deterministic ordering.
	Name() string

	// CreateIndexer returns a fresh Indexer for the given event kind, or
	// (nil, false) if this factory does not apply to that kind.
	CreateIndexer(kind EventKind) (Indexer, bool)
}

// AsQueryFactories adapts a slice of Factory into []query.Factory for use
// with query.Compile.
func AsQueryFactories(factories []Factory) []query.Factory {
	out := make([]query.Factory, len(factories))
	for i, f := range factories {
		out[i] = f
	}
	return out
}
