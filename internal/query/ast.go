// Package query implements the query language and compiler described in
// the indexer framework: a boolean query string is parsed into a
// LogicalQuery tree of QueryParts, then compiled against the registered
// indexer factories into a single IndexQuery tree that only the index
// backend interprets.
package query

import (
	"fmt"
	"strings"
)

// CompareOp is a comparison operator for a key/value or compiled Compare term.
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpGT
	OpGTE
	OpLT
	OpLTE
)

func (op CompareOp) String() string {
	switch op {
	case OpEQ:
		return "="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	default:
		return "?"
	}
}

// QueryPart is a single leaf term produced by the parser, before
// compilation against any factory.
type QueryPart interface {
	queryPart()
	String() string
}

// StringQueryPart is a bareword or quoted-string term such as "Berlin".
// Parse always leaves Key empty; "address.Locality:Berlin" parses to a
// KeyValueQueryPart instead.
type StringQueryPart struct {
	Key   string // "" for an unscoped bareword
	Value string
	Op    CompareOp
}

func (StringQueryPart) queryPart() {}

func (p StringQueryPart) String() string {
	if p.Key == "" {
		return p.Value
	}
	return fmt.Sprintf("%s%s%s", p.Key, p.Op, p.Value)
}

// KeyValueQueryPart is a key:value (or key>value, key<=value, …) term.
type KeyValueQueryPart struct {
	Key   string
	Value string
	Op    CompareOp
}

func (KeyValueQueryPart) queryPart() {}

func (p KeyValueQueryPart) String() string {
	return fmt.Sprintf("%s%s%s", p.Key, p.Op, p.Value)
}

// BboxQueryPart is a bracketed "[minX,minY,maxX,maxY]" term.
type BboxQueryPart struct {
	MinX, MinY, MaxX, MaxY float64
}

func (BboxQueryPart) queryPart() {}

func (p BboxQueryPart) String() string {
	return fmt.Sprintf("[%g,%g,%g,%g]", p.MinX, p.MinY, p.MaxX, p.MaxY)
}

// LogicalQuery is the parsed boolean-expression tree over QueryParts.
type LogicalQuery interface {
	logicalQuery()
	String() string
}

// TermQuery wraps a single leaf QueryPart.
type TermQuery struct {
	Part QueryPart
}

func (TermQuery) logicalQuery() {}

func (t TermQuery) String() string { return t.Part.String() }

// AndQuery is the conjunction of two or more sub-queries.
type AndQuery struct {
	Terms []LogicalQuery
}

func (AndQuery) logicalQuery() {}

func (a AndQuery) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// OrQuery is the disjunction of two or more sub-queries.
type OrQuery struct {
	Terms []LogicalQuery
}

func (OrQuery) logicalQuery() {}

func (o OrQuery) String() string {
	parts := make([]string, len(o.Terms))
	for i, t := range o.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// NotQuery negates a sub-query.
type NotQuery struct {
	Term LogicalQuery
}

func (NotQuery) logicalQuery() {}

func (n NotQuery) String() string { return "NOT " + n.Term.String() }

// flattenAnd merges adjacent AndQuery nodes so the tree stays shallow.
func flattenAnd(left, right LogicalQuery) LogicalQuery {
	var terms []LogicalQuery
	if a, ok := left.(AndQuery); ok {
		terms = append(terms, a.Terms...)
	} else {
		terms = append(terms, left)
	}
	if a, ok := right.(AndQuery); ok {
		terms = append(terms, a.Terms...)
	} else {
		terms = append(terms, right)
	}
	return AndQuery{Terms: terms}
}

// flattenOr merges adjacent OrQuery nodes so the tree stays shallow.
func flattenOr(left, right LogicalQuery) LogicalQuery {
	var terms []LogicalQuery
	if o, ok := left.(OrQuery); ok {
		terms = append(terms, o.Terms...)
	} else {
		terms = append(terms, left)
	}
	if o, ok := right.(OrQuery); ok {
		terms = append(terms, o.Terms...)
	} else {
		terms = append(terms, right)
	}
	return OrQuery{Terms: terms}
}

// IndexQuery is the compiled query tree: the only surface the index
// backend interprets. The compiler treats it as opaque once built.
type IndexQuery interface {
	indexQuery()
}

// AllQuery matches every chunk.
type AllQuery struct{}

func (AllQuery) indexQuery() {}

// ElementsWithinQuery matches chunks whose geometry lies within Bbox.
type ElementsWithinQuery struct {
	Bbox [4]float64
}

func (ElementsWithinQuery) indexQuery() {}

// ElementsContainQuery matches chunks whose geometry contains Bbox.
type ElementsContainQuery struct {
	Bbox [4]float64
}

func (ElementsContainQuery) indexQuery() {}

// CompareQuery matches chunks whose Field compares to Value via Op.
type CompareQuery struct {
	Field string
	Value string
	Op    CompareOp
}

func (CompareQuery) indexQuery() {}

// ContainsQuery matches chunks whose Field (a list-valued index field)
// contains Value.
type ContainsQuery struct {
	Field string
	Value string
}

func (ContainsQuery) indexQuery() {}

// GlobQuery matches chunks whose Field value matches a doublestar glob
// Pattern (e.g. "filename:*.gml").
type GlobQuery struct {
	Field   string
	Pattern string
}

func (GlobQuery) indexQuery() {}

// GlobKeysQuery matches chunks that have at least one key of a map-valued
// Field (e.g. "genAttrs") matching a doublestar glob Pattern, regardless of
// that key's value.
type GlobKeysQuery struct {
	Field   string
	Pattern string
}

func (GlobKeysQuery) indexQuery() {}

// AndIndexQuery is the conjunction of two or more compiled sub-queries.
type AndIndexQuery struct {
	Terms []IndexQuery
}

func (AndIndexQuery) indexQuery() {}

// OrIndexQuery is the disjunction of two or more compiled sub-queries.
type OrIndexQuery struct {
	Terms []IndexQuery
}

func (OrIndexQuery) indexQuery() {}

// NotIndexQuery negates a compiled sub-query.
type NotIndexQuery struct {
	Term IndexQuery
}

func (NotIndexQuery) indexQuery() {}
