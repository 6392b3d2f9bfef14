package indexer

import (
	"encoding/json"
	"strconv"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/xmlstream"
)

const genericNamespacePrefix = "gen"

// GenericAttributeIndexerFactory creates a GenericAttributeIndexer for
// both event kinds. It compiles key:value terms at SHOULD priority so a
// generic-attribute match never overrides a more specific factory's
// ONLY verdict, but still contributes to an unscoped OR.
type GenericAttributeIndexerFactory struct{}

func (GenericAttributeIndexerFactory) Name() string { return "genericAttribute" }

func (GenericAttributeIndexerFactory) CreateIndexer(EventKind) (Indexer, bool) {
	return &GenericAttributeIndexer{attrs: map[string]string{}}, true
}

func (GenericAttributeIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	if _, ok := part.(query.KeyValueQueryPart); ok {
		return query.PriorityShould
	}
	return query.PriorityNone
}

func (GenericAttributeIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	kv, ok := part.(query.KeyValueQueryPart)
	if !ok {
		return nil, false
	}
	if kv.Key == "gen" {
		// "gen:addr*" matches any generic attribute whose key matches the
		// glob, regardless of its value.
		return query.GlobKeysQuery{Field: "genAttrs", Pattern: kv.Value}, true
	}
	return query.CompareQuery{Field: "genAttrs." + kv.Key, Value: kv.Value, Op: kv.Op}, true
}

// GenericAttributeIndexer collects gen:* XML elements and generic
// (non-geometry) GeoJSON properties into a flat string map.
type GenericAttributeIndexer struct {
	attrs map[string]string

	xmlElementStack []string
	xmlElementText  []byte
	capturingXML    bool

	markPropertiesNext bool
	inProperties       bool
	depth              int // nesting depth of containers opened within properties; 0 = properties' own body
	lastField          string
	haveField          bool
}

func (idx *GenericAttributeIndexer) OnXMLEvent(ev xmlstream.Event) {
	switch ev.Kind {
	case xmlstream.StartElement:
		if ev.Prefix == genericNamespacePrefix {
			idx.capturingXML = true
			idx.xmlElementStack = append(idx.xmlElementStack, ev.Local)
			idx.xmlElementText = nil
		}
	case xmlstream.Characters:
		if idx.capturingXML {
			idx.xmlElementText = append(idx.xmlElementText, ev.Text...)
		}
	case xmlstream.EndElement:
		if idx.capturingXML && ev.Prefix == genericNamespacePrefix {
			name := idx.xmlElementStack[len(idx.xmlElementStack)-1]
			idx.xmlElementStack = idx.xmlElementStack[:len(idx.xmlElementStack)-1]
			idx.attrs[name] = string(idx.xmlElementText)
			idx.capturingXML = false
			idx.xmlElementText = nil
		}
	}
}

// OnJSONEvent tracks the "properties" object and records every direct
// (depth-0) scalar member other than one named "type" as a generic
// attribute. Nested objects/arrays
// inside properties are skipped rather than flattened.
func (idx *GenericAttributeIndexer) OnJSONEvent(ev jsonstream.Event) {
	switch ev.Kind {
	case jsonstream.FieldName:
		name := ev.Value.(string)
		if !idx.inProperties {
			idx.markPropertiesNext = name == "properties"
			return
		}
		if idx.depth == 0 {
			idx.lastField = name
			idx.haveField = true
		}

	case jsonstream.StartObject:
		if idx.markPropertiesNext {
			idx.inProperties = true
			idx.depth = 0
			idx.markPropertiesNext = false
			return
		}
		if idx.inProperties {
			idx.depth++
			idx.haveField = false
		}

	case jsonstream.StartArray:
		if idx.inProperties {
			idx.depth++
			idx.haveField = false
		}

	case jsonstream.EndObject, jsonstream.EndArray:
		if idx.inProperties {
			if idx.depth == 0 {
				idx.inProperties = false
			} else {
				idx.depth--
			}
		}

	case jsonstream.ValueString, jsonstream.ValueNumber, jsonstream.ValueBool:
		if idx.inProperties && idx.depth == 0 && idx.haveField {
			if idx.lastField != "type" {
				idx.attrs[idx.lastField] = scalarToString(ev)
			}
			idx.haveField = false
		}

	case jsonstream.ValueNull:
		idx.haveField = false
	}
}

func scalarToString(ev jsonstream.Event) string {
	switch v := ev.Value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (idx *GenericAttributeIndexer) MakeResult() chunk.Document {
	if len(idx.attrs) == 0 {
		return nil
	}
	return chunk.Document{"genAttrs": idx.attrs}
}
