package indexer

import (
	"encoding/json"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/xmlstream"
)

const gmlNamespacePrefix = "gml"

// GmlIdIndexerFactory creates a GmlIdIndexer for XML chunks only.
type GmlIdIndexerFactory struct{}

func (GmlIdIndexerFactory) Name() string { return "gmlId" }

func (GmlIdIndexerFactory) CreateIndexer(kind EventKind) (Indexer, bool) {
	if kind != EventKindXML {
		return nil, false
	}
	return &GmlIdIndexer{}, true
}

func (GmlIdIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	if kv, ok := part.(query.KeyValueQueryPart); ok && kv.Key == "gmlId" {
		return query.PriorityOnly
	}
	return query.PriorityNone
}

func (GmlIdIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	kv, ok := part.(query.KeyValueQueryPart)
	if !ok || kv.Key != "gmlId" {
		return nil, false
	}
	return query.ContainsQuery{Field: "gmlIds", Value: kv.Value}, true
}

// GmlIdIndexer collects every gml:id attribute value seen on any element
// in the chunk.
type GmlIdIndexer struct {
	ids []string
}

func (idx *GmlIdIndexer) OnXMLEvent(ev xmlstream.Event) {
	if ev.Kind != xmlstream.StartElement {
		return
	}
	for _, a := range ev.Attrs {
		if a.Prefix == gmlNamespacePrefix && a.Local == "id" {
			idx.ids = append(idx.ids, a.Value)
		}
	}
}

func (idx *GmlIdIndexer) MakeResult() chunk.Document {
	if len(idx.ids) == 0 {
		return nil
	}
	return chunk.Document{"gmlIds": idx.ids}
}

// GeoJsonIdIndexerFactory creates a GeoJsonIdIndexer for JSON chunks only.
type GeoJsonIdIndexerFactory struct{}

func (GeoJsonIdIndexerFactory) Name() string { return "geoJsonId" }

func (GeoJsonIdIndexerFactory) CreateIndexer(kind EventKind) (Indexer, bool) {
	if kind != EventKindJSON {
		return nil, false
	}
	return &GeoJsonIdIndexer{}, true
}

func (GeoJsonIdIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	switch p := part.(type) {
	case query.KeyValueQueryPart:
		if p.Key == "id" {
			return query.PriorityOnly
		}
	case query.StringQueryPart:
		if p.Key == "" {
			return query.PriorityShould
		}
	}
	return query.PriorityNone
}

func (GeoJsonIdIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	switch p := part.(type) {
	case query.KeyValueQueryPart:
		if p.Key != "id" {
			return nil, false
		}
		return query.ContainsQuery{Field: "geoJsonFeatureIds", Value: p.Value}, true
	case query.StringQueryPart:
		if p.Key != "" {
			return nil, false
		}
		return query.ContainsQuery{Field: "geoJsonFeatureIds", Value: p.Value}, true
	}
	return nil, false
}

// GeoJsonIdIndexer collects the top-level "id" member of a Feature, if
// present (GeoJSON's optional Feature.id, RFC 7946 §3.2).
type GeoJsonIdIndexer struct {
	ids         []string
	depth       int
	pendingIsID bool
}

func (idx *GeoJsonIdIndexer) OnJSONEvent(ev jsonstream.Event) {
	switch ev.Kind {
	case jsonstream.StartObject, jsonstream.StartArray:
		idx.depth++
	case jsonstream.EndObject, jsonstream.EndArray:
		idx.depth--
	case jsonstream.FieldName:
		idx.pendingIsID = idx.depth == 1 && ev.Value.(string) == "id"
	case jsonstream.ValueString:
		if idx.pendingIsID {
			idx.ids = append(idx.ids, ev.Value.(string))
			idx.pendingIsID = false
		}
	case jsonstream.ValueNumber:
		if idx.pendingIsID {
			idx.ids = append(idx.ids, ev.Value.(json.Number).String())
			idx.pendingIsID = false
		}
	}
}

func (idx *GeoJsonIdIndexer) MakeResult() chunk.Document {
	if len(idx.ids) == 0 {
		return nil
	}
	return chunk.Document{"geoJsonFeatureIds": idx.ids}
}
