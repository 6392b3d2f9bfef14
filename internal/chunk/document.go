package chunk

import "maps"

// Document is an unordered mapping from field name to value, where value is
// a primitive, a []any, or a nested map[string]any. It is produced by one or
// more indexers and merged by set union.
//
// Aggregate fields ("genAttrs", "props", "tags") are the only keys more than
// one indexer may contribute to; for all other keys, a collision between two
// indexers is a programming error (see indexer.Union).
type Document map[string]any

// AggregateFields are the well-known top-level keys that multiple indexers
// are allowed to contribute to. Union merges these by combining rather than
// rejecting on conflict.
var AggregateFields = map[string]struct{}{
	"genAttrs": {},
	"props":    {},
	"tags":     {},
}

// Clone returns a shallow copy of the document (the top-level map is copied;
// nested values are shared).
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}
