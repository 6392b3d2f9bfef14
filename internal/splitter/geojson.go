package splitter

import (
	"context"
	"errors"
	"io"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/window"
)

// GeoJSON splits a GeoJSON byte stream into chunks.
//
// If the top-level object carries a "features" or "geometries" array, each
// direct object element of that array becomes a chunk (parent_field_name
// set accordingly). Otherwise the whole top-level object — a lone Feature
// or Geometry — becomes a single chunk.
//
// Each chunk's GeoJSONMeta.Type is classified from the first "type" string
// field encountered while that chunk's own object is the innermost open
// container; a "type" field belonging to a nested value is never used for
// this (the original GeoRocket conflated the two — see design notes).
type GeoJSON struct{}

type containerKind int

const (
	containerObject containerKind = iota
	containerArray
)

type csFrame struct {
	kind            containerKind
	fieldName       string // field name this container was the value of ("" for array elements / top-level)
	isChunkArray    bool   // true for the identified features/geometries array
	isChunkCandidate bool  // true if closing this frame should emit a chunk
	chunkStart      int64
	pendingType     string
	typeSet         bool
}

func (GeoJSON) Split(ctx context.Context, r io.Reader, out chan<- chunk.Chunk) error {
	win := window.New()
	src := jsonstream.New(winFeeder{r: r, w: win})

	var (
		stack          []csFrame
		lastFieldName  string
		haveFieldName  bool
		collectionFound bool
	)

	emitChunk := func(start, end int64, gtype chunk.GeoJSONType, parentField string) error {
		raw, err := win.Substring(start, end)
		if err != nil {
			return err
		}
		body := make([]byte, len(raw))
		copy(body, raw)
		meta := chunk.Meta{
			MimeType: "application/json",
			GeoJSON: &chunk.GeoJSONMeta{
				Type:            gtype,
				ParentFieldName: parentField,
				Start:           start,
				End:             end,
			},
		}
		if err := send(ctx, out, chunk.Chunk{Bytes: body, Meta: meta}); err != nil {
			return err
		}
		win.AdvanceTo(end)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := src.Next()
		if err != nil {
			var mi *jsonstream.MalformedInput
			if errors.As(err, &mi) {
				return &MalformedInput{Offset: mi.Offset, Message: mi.Message, Err: mi}
			}
			if errors.Is(err, io.EOF) {
				if len(stack) != 0 {
					return &MalformedInput{Offset: win.End(), Message: "unexpected end of document: unbalanced containers"}
				}
				return nil
			}
			return err
		}

		switch ev.Kind {
		case jsonstream.FieldName:
			// Recorded here, consumed by the value event that immediately
			// follows (StartObject/StartArray/Value*) — JSON grammar
			// guarantees no event falls between a field name and its value.
			lastFieldName = ev.Value.(string)
			haveFieldName = true
			continue

		case jsonstream.StartObject:
			f := csFrame{kind: containerObject}
			if len(stack) == 0 {
				// Root object: always a provisional lone-chunk candidate.
				f.isChunkCandidate = true
				f.chunkStart = ev.BytePos
			} else {
				parent := &stack[len(stack)-1]
				if parent.kind == containerArray && parent.isChunkArray {
					f.isChunkCandidate = true
					f.chunkStart = ev.BytePos
					f.fieldName = parent.fieldName
				}
			}
			stack = append(stack, f)

		case jsonstream.StartArray:
			f := csFrame{kind: containerArray}
			if haveFieldName {
				f.fieldName = lastFieldName
				if len(stack) == 1 && !collectionFound && (lastFieldName == "features" || lastFieldName == "geometries") {
					f.isChunkArray = true
					collectionFound = true
				}
			}
			stack = append(stack, f)

		case jsonstream.ValueString:
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if haveFieldName && lastFieldName == "type" && top.kind == containerObject && !top.typeSet {
					top.pendingType = ev.Value.(string)
					top.typeSet = true
				}
			}

		case jsonstream.EndObject:
			if len(stack) == 0 {
				return &MalformedInput{Offset: ev.BytePos, Message: "unmatched end object"}
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			isRoot := len(stack) == 0
			shouldEmit := f.isChunkCandidate
			if isRoot && collectionFound {
				// Root carried a features/geometries array; it is the
				// container, not a chunk.
				shouldEmit = false
			}
			if shouldEmit {
				gtype := chunk.GeoJSONType(f.pendingType)
				if gtype == "" {
					gtype = chunk.GeoJSONUnknown
				}
				if err := emitChunk(f.chunkStart, ev.BytePos+1, gtype, f.fieldName); err != nil {
					return err
				}
			}

		case jsonstream.EndArray:
			if len(stack) == 0 {
				return &MalformedInput{Offset: ev.BytePos, Message: "unmatched end array"}
			}
			stack = stack[:len(stack)-1]

		case jsonstream.ValueNumber, jsonstream.ValueBool, jsonstream.ValueNull:
			// No chunk-boundary or type-classification significance.
		}

		haveFieldName = false
	}
}
