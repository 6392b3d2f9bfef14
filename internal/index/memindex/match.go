package memindex

import (
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/query"
)

// matches reports whether doc satisfies q. It is the in-memory backend's
// own interpretation of the opaque IndexQuery tree; a database-backed index
// would instead translate the same tree into SQL or a Mongo filter.
func matches(doc chunk.Document, q query.IndexQuery) bool {
	switch t := q.(type) {
	case query.AllQuery:
		return true
	case query.AndIndexQuery:
		for _, term := range t.Terms {
			if !matches(doc, term) {
				return false
			}
		}
		return true
	case query.OrIndexQuery:
		for _, term := range t.Terms {
			if matches(doc, term) {
				return true
			}
		}
		return false
	case query.NotIndexQuery:
		return !matches(doc, t.Term)
	case query.CompareQuery:
		return matchCompare(doc, t)
	case query.ContainsQuery:
		return matchContains(doc, t)
	case query.ElementsWithinQuery:
		return matchWithin(doc, t.Bbox)
	case query.ElementsContainQuery:
		return matchContainBbox(doc, t.Bbox)
	case query.GlobQuery:
		return matchGlob(doc, t)
	case query.GlobKeysQuery:
		return matchGlobKeys(doc, t)
	default:
		return false
	}
}

// field navigates a dotted field path ("address.Country") through nested
// map[string]any values, returning the leaf and whether it was found.
//
// A freshly-imported chunk's generic-attribute aggregate field is stored as
// map[string]string (see indexer.GenericAttributeIndexer), not
// map[string]any: it is flat by construction, with no further nesting below
// it. It only round-trips to map[string]any after a msgpack snapshot decode.
// So map[string]string is treated as a terminal map here, one remaining path
// segment deep, rather than requiring every level to be map[string]any.
func field(doc chunk.Document, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = map[string]any(doc)
	for i, p := range parts {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[p]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			if i != len(parts)-1 {
				return nil, false
			}
			v, ok := m[p]
			if !ok {
				return nil, false
			}
			return v, true
		default:
			return nil, false
		}
	}
	return cur, true
}

func matchCompare(doc chunk.Document, c query.CompareQuery) bool {
	v, ok := field(doc, c.Field)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case string:
		return compareStrings(t, c.Value, c.Op)
	case float64:
		n, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false
		}
		return compareFloats(t, n, c.Op)
	default:
		return false
	}
}

func compareStrings(a, b string, op query.CompareOp) bool {
	switch op {
	case query.OpEQ:
		return a == b
	case query.OpGT:
		return a > b
	case query.OpGTE:
		return a >= b
	case query.OpLT:
		return a < b
	case query.OpLTE:
		return a <= b
	default:
		return false
	}
}

func compareFloats(a, b float64, op query.CompareOp) bool {
	switch op {
	case query.OpEQ:
		return a == b
	case query.OpGT:
		return a > b
	case query.OpGTE:
		return a >= b
	case query.OpLT:
		return a < b
	case query.OpLTE:
		return a <= b
	default:
		return false
	}
}

func matchContains(doc chunk.Document, c query.ContainsQuery) bool {
	v, ok := field(doc, c.Field)
	if !ok {
		return false
	}
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s == c.Value {
				return true
			}
		}
	case []any:
		for _, s := range list {
			if str, ok := s.(string); ok && str == c.Value {
				return true
			}
		}
	case map[string]string:
		_, ok := list[c.Value]
		return ok
	case map[string]struct{}:
		_, ok := list[c.Value]
		return ok
	}
	return false
}

func matchGlob(doc chunk.Document, g query.GlobQuery) bool {
	v, ok := field(doc, g.Field)
	if !ok {
		return false
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	ok, err := doublestar.Match(g.Pattern, s)
	return err == nil && ok
}

func matchGlobKeys(doc chunk.Document, g query.GlobKeysQuery) bool {
	v, ok := field(doc, g.Field)
	if !ok {
		return false
	}
	switch m := v.(type) {
	case map[string]string:
		for k := range m {
			if ok, err := doublestar.Match(g.Pattern, k); err == nil && ok {
				return true
			}
		}
	case map[string]struct{}:
		for k := range m {
			if ok, err := doublestar.Match(g.Pattern, k); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func matchWithin(doc chunk.Document, q [4]float64) bool {
	bbox, ok := field(doc, "bbox")
	if !ok {
		return false
	}
	b, ok := bbox.([]float64)
	if !ok || len(b) != 4 {
		return false
	}
	// The chunk's bbox must lie within the query bbox.
	return b[0] >= q[0] && b[1] >= q[1] && b[2] <= q[2] && b[3] <= q[3]
}

func matchContainBbox(doc chunk.Document, q [4]float64) bool {
	bbox, ok := field(doc, "bbox")
	if !ok {
		return false
	}
	b, ok := bbox.([]float64)
	if !ok || len(b) != 4 {
		return false
	}
	// The chunk's bbox must contain the query bbox.
	return b[0] <= q[0] && b[1] <= q[1] && b[2] >= q[2] && b[3] >= q[3]
}
