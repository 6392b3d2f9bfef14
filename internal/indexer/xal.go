package indexer

import (
	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/xmlstream"
)

// xalFields are the XAL (eXtensible Address Language) element local names
// this indexer extracts, in the order scenario S4 enumerates them.
var xalFields = []string{"Country", "Locality", "Thoroughfare"}

// XalAddressIndexerFactory creates an XalAddressIndexer for XML chunks.
// It contributes one Compare term per XAL key at SHOULD priority, so an
// unscoped bareword term ORs across all of them (see scenario S4).
type XalAddressIndexerFactory struct{}

func (XalAddressIndexerFactory) Name() string { return "xalAddress" }

func (XalAddressIndexerFactory) CreateIndexer(kind EventKind) (Indexer, bool) {
	if kind != EventKindXML {
		return nil, false
	}
	return &XalAddressIndexer{fields: map[string]string{}}, true
}

func (XalAddressIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	switch p := part.(type) {
	case query.StringQueryPart:
		if p.Key == "" {
			return query.PriorityShould
		}
	case query.KeyValueQueryPart:
		if p.Key == "address" {
			return query.PriorityShould
		}
	}
	return query.PriorityNone
}

// CompileQuery expands a bareword or "address:value" term into an Or of
// one Compare term per known XAL key, matching scenario S4.
func (XalAddressIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	var value string
	switch p := part.(type) {
	case query.StringQueryPart:
		if p.Key != "" {
			return nil, false
		}
		value = p.Value
	case query.KeyValueQueryPart:
		if p.Key != "address" {
			return nil, false
		}
		value = p.Value
	default:
		return nil, false
	}

	terms := make([]query.IndexQuery, len(xalFields))
	for i, field := range xalFields {
		terms[i] = query.CompareQuery{Field: "address." + field, Value: value, Op: query.OpEQ}
	}
	return query.OrIndexQuery{Terms: terms}, true
}

// XalAddressIndexer extracts the well-known XAL address elements from a
// chunk's XML event stream.
type XalAddressIndexer struct {
	fields map[string]string

	capturing string // the XAL field currently being captured, "" if none
	text      []byte
}

func (idx *XalAddressIndexer) OnXMLEvent(ev xmlstream.Event) {
	switch ev.Kind {
	case xmlstream.StartElement:
		if isXalField(ev.Local) {
			idx.capturing = ev.Local
			idx.text = nil
		}
	case xmlstream.Characters:
		if idx.capturing != "" {
			idx.text = append(idx.text, ev.Text...)
		}
	case xmlstream.EndElement:
		if idx.capturing != "" && ev.Local == idx.capturing {
			idx.fields[idx.capturing] = string(idx.text)
			idx.capturing = ""
			idx.text = nil
		}
	}
}

func isXalField(local string) bool {
	for _, f := range xalFields {
		if f == local {
			return true
		}
	}
	return false
}

func (idx *XalAddressIndexer) MakeResult() chunk.Document {
	if len(idx.fields) == 0 {
		return nil
	}
	address := make(map[string]any, len(idx.fields))
	for k, v := range idx.fields {
		address[k] = v
	}
	return chunk.Document{"address": address}
}
