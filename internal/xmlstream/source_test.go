package xmlstream

import (
	"io"
	"strings"
	"testing"
)

func collect(t *testing.T, xml string) []Event {
	t.Helper()
	s := New(strings.NewReader(xml))
	var events []Event
	for {
		ev, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
		if ev.Kind == EndDocument {
			break
		}
	}
	return events
}

func TestBasicElements(t *testing.T) {
	events := collect(t, `<root><a/><b>text</b></root>`)

	var kinds []Kind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	want := []Kind{StartDocument, StartElement, StartElement, EndElement, StartElement, Characters, EndElement, EndElement, EndDocument}
	if len(kinds) != len(want) {
		t.Fatalf("got %v kinds, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestNamespacePrefixRecovered(t *testing.T) {
	events := collect(t, `<c:city xmlns:c="urn:city"><c:feature id="1"/></c:city>`)

	var starts []Event
	for _, e := range events {
		if e.Kind == StartElement {
			starts = append(starts, e)
		}
	}
	if len(starts) != 2 {
		t.Fatalf("expected 2 start elements, got %d", len(starts))
	}
	if starts[0].Prefix != "c" || starts[0].Local != "city" {
		t.Errorf("root: got prefix=%q local=%q", starts[0].Prefix, starts[0].Local)
	}
	if starts[1].Prefix != "c" || starts[1].Local != "feature" {
		t.Errorf("child: got prefix=%q local=%q", starts[1].Prefix, starts[1].Local)
	}
	if len(starts[1].Attrs) != 1 || starts[1].Attrs[0].Local != "id" || starts[1].Attrs[0].Value != "1" {
		t.Errorf("child attrs: got %+v", starts[1].Attrs)
	}
}

func TestBytePosAtAngleBracket(t *testing.T) {
	src := `<c><f id="1"/></c>`
	events := collect(t, src)
	for _, e := range events {
		if e.Kind == StartElement {
			if src[e.BytePos] != '<' {
				t.Errorf("BytePos %d does not point at '<': %q", e.BytePos, src[e.BytePos:])
			}
		}
	}
}

func TestMalformedInput(t *testing.T) {
	s := New(strings.NewReader(`<a><b></a>`))
	var lastErr error
	for {
		_, err := s.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected error for unbalanced tags")
	}
	if _, ok := lastErr.(*MalformedInput); !ok {
		t.Errorf("expected *MalformedInput, got %T: %v", lastErr, lastErr)
	}
}
