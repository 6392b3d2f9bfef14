package jsonstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MalformedInput is returned when the underlying JSON is not well-formed.
type MalformedInput struct {
	Offset  int64
	Message string
	Err     error
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("jsonstream: malformed input at offset %d: %s", e.Offset, e.Message)
}

func (e *MalformedInput) Unwrap() error { return e.Err }

type frame struct {
	isObject  bool
	expectKey bool // only meaningful when isObject
}

// Source pulls events from a JSON byte stream in document order.
// A Source is single-pass and not safe for concurrent use.
type Source struct {
	dec   *json.Decoder
	stack []frame
	done  bool
}

// New returns a Source reading from r.
func New(r io.Reader) *Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Source{dec: dec}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
//
// encoding/json's Decoder silently consumes whitespace and structural commas
// inside Token() itself, with no token emitted for them, so InputOffset()
// captured before a Token() call still points at whatever separator preceded
// it rather than at the token Token() is about to return. InputOffset() read
// immediately after Token() returns is exact, though: by then the decoder has
// advanced scanp past the token it just produced. So every BytePos below is
// derived from the post-call offset, walking back by the token's own byte
// width, the same way xmlstream reads InputOffset() after the EndElement
// token rather than before it.
func (s *Source) Next() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}

	tok, err := s.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return Event{}, io.EOF
		}
		return Event{}, &MalformedInput{Offset: s.dec.InputOffset(), Message: err.Error(), Err: err}
	}
	end := s.dec.InputOffset()

	top := func() *frame {
		if len(s.stack) == 0 {
			return nil
		}
		return &s.stack[len(s.stack)-1]
	}

	switch t := tok.(type) {
	case json.Delim:
		pos := end - 1 // delimiters are always a single byte
		switch t {
		case '{':
			s.stack = append(s.stack, frame{isObject: true, expectKey: true})
			return Event{Kind: StartObject, BytePos: pos}, nil
		case '}':
			if len(s.stack) > 0 {
				s.stack = s.stack[:len(s.stack)-1]
			}
			s.afterValue()
			return Event{Kind: EndObject, BytePos: pos}, nil
		case '[':
			s.stack = append(s.stack, frame{isObject: false})
			return Event{Kind: StartArray, BytePos: pos}, nil
		case ']':
			if len(s.stack) > 0 {
				s.stack = s.stack[:len(s.stack)-1]
			}
			s.afterValue()
			return Event{Kind: EndArray, BytePos: pos}, nil
		default:
			return Event{}, &MalformedInput{Offset: pos, Message: "unexpected delimiter"}
		}

	case string:
		// len(t)+2 (the surrounding quotes) only matches the raw byte width
		// when the string contains no escape sequences; BytePos for string
		// tokens is a best-effort start, unlike container delimiters, no
		// caller slices chunk bytes from a FieldName/ValueString position.
		pos := end - int64(len(t)) - 2
		if f := top(); f != nil && f.isObject && f.expectKey {
			f.expectKey = false
			return Event{Kind: FieldName, Value: t, BytePos: pos}, nil
		}
		s.afterValue()
		return Event{Kind: ValueString, Value: t, BytePos: pos}, nil

	case json.Number:
		s.afterValue()
		return Event{Kind: ValueNumber, Value: t, BytePos: end - int64(len(string(t)))}, nil

	case bool:
		s.afterValue()
		width := int64(5) // "false"
		if t {
			width = 4 // "true"
		}
		return Event{Kind: ValueBool, Value: t, BytePos: end - width}, nil

	case nil:
		s.afterValue()
		return Event{Kind: ValueNull, BytePos: end - 4}, nil // "null"

	default:
		return Event{}, &MalformedInput{Offset: end, Message: fmt.Sprintf("unexpected token %T", tok)}
	}
}

// afterValue flips the enclosing object (if any) back to expecting a key
// for the next member.
func (s *Source) afterValue() {
	if len(s.stack) == 0 {
		return
	}
	f := &s.stack[len(s.stack)-1]
	if f.isObject {
		f.expectKey = true
	}
}
