package chunk

import "time"

// Chunk is an opaque, immutable byte slice that, re-embedded inside a
// reconstructed parent frame, forms a self-contained geospatial feature.
type Chunk struct {
	Bytes []byte
	Meta  Meta
}

// Meta is the tagged-variant chunk metadata. Exactly one of XML or GeoJSON
// is non-nil; MimeType determines which.
//
// Meta is a struct rather than an interface so it can be embedded, copied by
// value, and round-tripped through encoding/json without a custom
// UnmarshalJSON dispatching on a discriminator field.
type Meta struct {
	MimeType string
	XML      *XMLMeta    `json:"xml,omitempty"`
	GeoJSON  *GeoJSONMeta `json:"geoJson,omitempty"`
}

// IsXML reports whether this metadata describes an XML chunk.
func (m Meta) IsXML() bool { return m.XML != nil }

// IsGeoJSON reports whether this metadata describes a GeoJSON chunk.
func (m Meta) IsGeoJSON() bool { return m.GeoJSON != nil }

// StartElement is the chain of enclosing XML start-tags (with namespace
// declarations) that existed above a chunk in the source document.
type StartElement struct {
	Prefix            string            `json:"prefix"`
	LocalName         string            `json:"localName"`
	NamespacePrefixes map[string]string `json:"namespacePrefixes,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// Name returns the qualified name (prefix:local, or just local if unprefixed).
func (e StartElement) Name() string {
	if e.Prefix == "" {
		return e.LocalName
	}
	return e.Prefix + ":" + e.LocalName
}

// XMLMeta describes a chunk extracted from an XML document.
type XMLMeta struct {
	Parents []StartElement `json:"parents"`
	Start   int64          `json:"start"`
	End     int64          `json:"end"`
}

// GeoJSONType enumerates the shapes the splitter recognizes for the "type"
// field of a chunked GeoJSON object.
type GeoJSONType string

const (
	GeoJSONFeature            GeoJSONType = "Feature"
	GeoJSONPolygon            GeoJSONType = "Polygon"
	GeoJSONLineString         GeoJSONType = "LineString"
	GeoJSONPoint              GeoJSONType = "Point"
	GeoJSONMultiPolygon       GeoJSONType = "MultiPolygon"
	GeoJSONMultiLineString    GeoJSONType = "MultiLineString"
	GeoJSONMultiPoint         GeoJSONType = "MultiPoint"
	GeoJSONGeometryCollection GeoJSONType = "GeometryCollection"
	GeoJSONUnknown            GeoJSONType = "Unknown"
)

// GeoJSONMeta describes a chunk extracted from a GeoJSON document.
type GeoJSONMeta struct {
	Type            GeoJSONType `json:"type"`
	ParentFieldName string      `json:"parentFieldName,omitempty"`
	Start           int64       `json:"start"`
	End             int64       `json:"end"`
}

// IndexMeta is attached to every chunk at import time and is immutable for
// the lifetime of the import.
type IndexMeta struct {
	CorrelationID CorrelationID
	Filename      string
	Timestamp     time.Time
	Tags          map[string]struct{}
	Properties    map[string]string
	FallbackCRS   string
}

// Copy returns a deep copy of the IndexMeta.
func (m IndexMeta) Copy() IndexMeta {
	cp := IndexMeta{
		CorrelationID: m.CorrelationID,
		Filename:      m.Filename,
		Timestamp:     m.Timestamp,
		FallbackCRS:   m.FallbackCRS,
	}
	if m.Tags != nil {
		cp.Tags = make(map[string]struct{}, len(m.Tags))
		for t := range m.Tags {
			cp.Tags[t] = struct{}{}
		}
	}
	if m.Properties != nil {
		cp.Properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			cp.Properties[k] = v
		}
	}
	return cp
}
