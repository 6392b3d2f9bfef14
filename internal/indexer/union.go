package indexer

import (
	"errors"
	"fmt"

	"github.com/tobias93/georocket/internal/chunk"
)

// ErrIndexKeyConflict is returned when two indexers contribute the same
// non-aggregate top-level field to an index document.
var ErrIndexKeyConflict = errors.New("indexer: conflicting top-level field")

// union merges src into dst in place. Aggregate fields (chunk.AggregateFields)
// are combined; any other key present in both is a conflict.
func union(dst chunk.Document, src chunk.Document) error {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		if _, aggregate := chunk.AggregateFields[k]; !aggregate {
			return fmt.Errorf("%w: %q", ErrIndexKeyConflict, k)
		}
		merged, err := mergeAggregate(existing, v)
		if err != nil {
			return fmt.Errorf("indexer: merging field %q: %w", k, err)
		}
		dst[k] = merged
	}
	return nil
}

// unionMetaWins is like union, but on conflict the value already in dst
// (from a MetaIndexer) wins rather than erroring, matching the framework
// rule that MetaIndexer maps win on key conflict.
func unionMetaWins(dst chunk.Document, src chunk.Document) {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		if _, aggregate := chunk.AggregateFields[k]; aggregate {
			if merged, err := mergeAggregate(existing, v); err == nil {
				dst[k] = merged
			}
		}
		// Non-aggregate conflict: existing (meta) value wins, dst unchanged.
	}
}

func mergeAggregate(a, b any) (any, error) {
	switch av := a.(type) {
	case map[string]string:
		bv, ok := b.(map[string]string)
		if !ok {
			return nil, fmt.Errorf("type mismatch: %T vs %T", a, b)
		}
		merged := make(map[string]string, len(av)+len(bv))
		for k, v := range av {
			merged[k] = v
		}
		for k, v := range bv {
			merged[k] = v
		}
		return merged, nil
	case map[string]struct{}:
		bv, ok := b.(map[string]struct{})
		if !ok {
			return nil, fmt.Errorf("type mismatch: %T vs %T", a, b)
		}
		merged := make(map[string]struct{}, len(av)+len(bv))
		for k := range av {
			merged[k] = struct{}{}
		}
		for k := range bv {
			merged[k] = struct{}{}
		}
		return merged, nil
	case []string:
		bv, ok := b.([]string)
		if !ok {
			return nil, fmt.Errorf("type mismatch: %T vs %T", a, b)
		}
		return append(append([]string{}, av...), bv...), nil
	default:
		return nil, fmt.Errorf("unsupported aggregate type %T", a)
	}
}
