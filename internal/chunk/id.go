// Package chunk defines GeoRocket's core data model: chunks, their metadata,
// and the import-time attributes attached to them. It has no dependency on
// any splitter, indexer, store, or index implementation.
package chunk

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idEncoding is base32hex (RFC 4648) lowercase without padding. The alphabet
// 0-9a-v preserves lexicographic sort order, so string-sorted IDs are also
// creation-time sorted.
var idEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// ID is a UUIDv7-backed identifier whose 26-character base32hex string form
// sorts lexicographically by creation time.
type ID [16]byte

// NewID creates an ID from a new UUIDv7.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()))
}

// ParseID parses a 26-character base32hex string into an ID.
func ParseID(value string) (ID, error) {
	if len(value) != 26 {
		return ID{}, fmt.Errorf("invalid id length: %d (want 26)", len(value))
	}
	decoded, err := idEncoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return ID{}, fmt.Errorf("invalid id: %w", err)
	}
	var id ID
	copy(id[:], decoded)
	return id, nil
}

// String returns the 26-character lowercase base32hex representation.
func (id ID) String() string {
	return strings.ToLower(idEncoding.EncodeToString(id[:]))
}

// Time returns the creation time encoded in the UUIDv7 ID.
func (id ID) Time() time.Time {
	ms := int64(id[0])<<40 | int64(id[1])<<32 | int64(id[2])<<24 |
		int64(id[3])<<16 | int64(id[4])<<8 | int64(id[5])
	return time.UnixMilli(ms)
}

// CorrelationID is an opaque string associating chunks that originated from
// the same import request. It is supplied by the caller, not generated here.
type CorrelationID string
