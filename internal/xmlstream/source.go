package xmlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// MalformedInput is returned when the underlying XML is not well-formed.
// Offset is the absolute byte position in the input stream at which the
// decoder detected the problem.
type MalformedInput struct {
	Offset  int64
	Message string
	Err     error
}

func (e *MalformedInput) Error() string {
	return fmt.Sprintf("xmlstream: malformed input at offset %d: %s", e.Offset, e.Message)
}

func (e *MalformedInput) Unwrap() error { return e.Err }

// nsFrame is one level of the namespace-prefix stack used to recover the
// literal prefix encoding/xml throws away when it resolves Name.Space to a
// full URI. Index 0 is reserved for the always-bound "xml" namespace.
type nsFrame struct {
	// uriToPrefix maps a namespace URI to the prefix most recently bound to
	// it at or above this depth. Declarations at deeper frames shadow
	// shallower ones for the same URI/prefix pair.
	uriToPrefix map[string]string
}

// Source pulls events from an XML byte stream in document order.
// A Source is single-pass and not safe for concurrent use.
type Source struct {
	dec     *xml.Decoder
	started bool
	ended   bool
	stack   []nsFrame
	pending *Event // queued StartDocument/EndDocument synthetic events
}

// New returns a Source reading from r.
func New(r io.Reader) *Source {
	return &Source{
		dec: xml.NewDecoder(r),
		stack: []nsFrame{{uriToPrefix: map[string]string{
			"http://www.w3.org/XML/1998/namespace": "xml",
		}}},
	}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (s *Source) Next() (Event, error) {
	if !s.started {
		s.started = true
		return Event{Kind: StartDocument, BytePos: 0}, nil
	}
	if s.ended {
		return Event{}, io.EOF
	}

	pos := s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.ended = true
			return Event{Kind: EndDocument, BytePos: s.dec.InputOffset()}, nil
		}
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return Event{}, &MalformedInput{Offset: pos, Message: se.Msg, Err: err}
		}
		return Event{}, &MalformedInput{Offset: pos, Message: err.Error(), Err: err}
	}

	switch t := tok.(type) {
	case xml.StartElement:
		frame := s.pushFrame(t)
		prefix, local := s.resolveName(t.Name, frame)
		attrs := make([]Attr, 0, len(t.Attr))
		nsDecls := map[string]string{}
		for _, a := range t.Attr {
			if a.Name.Space == "xmlns" {
				nsDecls[a.Name.Local] = a.Value
				continue
			}
			if a.Name.Space == "" && a.Name.Local == "xmlns" {
				nsDecls[""] = a.Value
				continue
			}
			aPrefix, aLocal := s.resolveName(a.Name, frame)
			attrs = append(attrs, Attr{Prefix: aPrefix, Local: aLocal, Value: a.Value})
		}
		return Event{
			Kind:       StartElement,
			Prefix:     prefix,
			Local:      local,
			Attrs:      attrs,
			Namespaces: nsDecls,
			BytePos:    pos,
		}, nil

	case xml.EndElement:
		frame := s.stack[len(s.stack)-1]
		prefix, local := s.resolveName(t.Name, frame)
		s.popFrame()
		return Event{
			Kind:    EndElement,
			Prefix:  prefix,
			Local:   local,
			BytePos: s.dec.InputOffset(),
		}, nil

	case xml.CharData:
		text := make([]byte, len(t))
		copy(text, t)
		return Event{Kind: Characters, Text: text, BytePos: pos}, nil

	default:
		// Comments, ProcInst, Directive: not part of the event model; skip
		// by recursing to the next real token.
		return s.Next()
	}
}

// pushFrame records the namespace declarations introduced by a StartElement
// and returns the merged frame (ancestors + this element's own decls) that
// should be used to resolve this element's own name and attributes.
func (s *Source) pushFrame(t xml.StartElement) nsFrame {
	parent := s.stack[len(s.stack)-1]
	merged := make(map[string]string, len(parent.uriToPrefix))
	for uri, p := range parent.uriToPrefix {
		merged[uri] = p
	}
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			merged[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			merged[a.Value] = ""
		}
	}
	frame := nsFrame{uriToPrefix: merged}
	s.stack = append(s.stack, frame)
	return frame
}

func (s *Source) popFrame() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// resolveName recovers the literal prefix for a resolved xml.Name, falling
// back to treating the resolved Space as an opaque prefix if no declaration
// is found (defensive; should not happen for well-formed input).
func (s *Source) resolveName(name xml.Name, frame nsFrame) (prefix, local string) {
	if name.Space == "" {
		return "", name.Local
	}
	if p, ok := frame.uriToPrefix[name.Space]; ok {
		return p, name.Local
	}
	return name.Space, name.Local
}
