package indexer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theory/jsonpath"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/query"
)

// GenericPropertyPathIndexerFactory extracts nested GeoJSON Feature
// properties via a configured list of JSONPath expressions, without
// materializing the whole chunk: only the properties object's own
// byte range is re-parsed, once per chunk. It complements
// GenericAttributeIndexer, which only sees direct (depth-0) property
// members.
type GenericPropertyPathIndexerFactory struct {
	// Paths are JSONPath expressions (RFC 9535) evaluated against each
	// chunk's top-level "properties" object, e.g. "$.address.city".
	Paths []string
}

func (GenericPropertyPathIndexerFactory) Name() string { return "genericPropertyPath" }

func (f GenericPropertyPathIndexerFactory) CreateIndexer(kind EventKind) (Indexer, bool) {
	if kind != EventKindJSON || len(f.Paths) == 0 {
		return nil, false
	}
	return &GenericPropertyPathIndexer{paths: f.Paths, attrs: map[string]string{}}, true
}

// Property-path terms are not query-compilable here: GenericAttributeIndexer
// already owns the "genAttrs.<key>" query surface, and a path indexer's
// contributed keys (the trailing path segment) are queried the same way.
func (GenericPropertyPathIndexerFactory) QueryPriority(query.QueryPart) query.Priority {
	return query.PriorityNone
}

func (GenericPropertyPathIndexerFactory) CompileQuery(query.QueryPart) (query.IndexQuery, bool) {
	return nil, false
}

// GenericPropertyPathIndexer tracks the byte range of the chunk's top-level
// "properties" object while streaming, then at MakeResult time re-parses
// just that range and evaluates each configured JSONPath expression
// against it.
type GenericPropertyPathIndexer struct {
	paths []string

	chunkBytes []byte

	pendingProperties bool
	inProperties      bool
	depth             int
	propStart         int64
	propEnd           int64
	haveRange         bool

	attrs map[string]string
}

func (idx *GenericPropertyPathIndexer) SetChunkBytes(b []byte) { idx.chunkBytes = b }

func (idx *GenericPropertyPathIndexer) OnJSONEvent(ev jsonstream.Event) {
	if idx.haveRange {
		return
	}
	switch ev.Kind {
	case jsonstream.FieldName:
		if !idx.inProperties {
			idx.pendingProperties = ev.Value.(string) == "properties"
		}

	case jsonstream.StartObject:
		if idx.pendingProperties {
			idx.inProperties = true
			idx.pendingProperties = false
			idx.propStart = ev.BytePos
			idx.depth = 1
			return
		}
		if idx.inProperties {
			idx.depth++
		}

	case jsonstream.StartArray:
		if idx.inProperties {
			idx.depth++
		}

	case jsonstream.EndObject, jsonstream.EndArray:
		if idx.inProperties {
			idx.depth--
			if idx.depth == 0 {
				idx.propEnd = ev.BytePos + 1
				idx.inProperties = false
				idx.haveRange = true
			}
		}
	}
}

func (idx *GenericPropertyPathIndexer) MakeResult() chunk.Document {
	if !idx.haveRange || idx.chunkBytes == nil || int(idx.propEnd) > len(idx.chunkBytes) {
		return nil
	}
	raw := idx.chunkBytes[idx.propStart:idx.propEnd]

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	for _, expr := range idx.paths {
		p, err := jsonpath.Parse(expr)
		if err != nil {
			continue
		}
		results := p.Select(doc)
		if len(results) == 0 {
			continue
		}
		idx.attrs[pathKey(expr)] = fmt.Sprint(results[0])
	}

	if len(idx.attrs) == 0 {
		return nil
	}
	return chunk.Document{"genAttrs": idx.attrs}
}

// pathKey turns a JSONPath expression like "$.address.city" into the
// dotted generic-attribute key "address.city".
func pathKey(expr string) string {
	expr = strings.TrimPrefix(expr, "$")
	return strings.TrimPrefix(expr, ".")
}
