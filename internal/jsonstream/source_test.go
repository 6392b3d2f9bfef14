package jsonstream

import (
	"io"
	"strings"
	"testing"
)

func collect(t *testing.T, s string) []Event {
	t.Helper()
	src := New(strings.NewReader(s))
	var events []Event
	for {
		ev, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestObjectFieldsAndValues(t *testing.T) {
	events := collect(t, `{"type":"Point","coordinates":[1,2],"ok":true,"n":null}`)

	var kinds []Kind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	want := []Kind{
		StartObject,
		FieldName, ValueString,
		FieldName, StartArray, ValueNumber, ValueNumber, EndArray,
		FieldName, ValueBool,
		FieldName, ValueNull,
		EndObject,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %v want %v", i, kinds[i], want[i])
		}
	}
}

func TestFieldNameValues(t *testing.T) {
	events := collect(t, `{"type":"Feature"}`)
	if events[1].Kind != FieldName || events[1].Value != "type" {
		t.Errorf("expected field name 'type', got %+v", events[1])
	}
	if events[2].Kind != ValueString || events[2].Value != "Feature" {
		t.Errorf("expected value 'Feature', got %+v", events[2])
	}
}

func TestBytePosAtTokenStart(t *testing.T) {
	src := `{"a":1}`
	events := collect(t, src)
	for _, e := range events {
		if e.Kind == StartObject && src[e.BytePos] != '{' {
			t.Errorf("BytePos mismatch for StartObject: %d", e.BytePos)
		}
	}
}

func TestNestedObjectsInArray(t *testing.T) {
	events := collect(t, `{"features":[{"type":"Feature"},{"type":"Feature"}]}`)
	count := 0
	for _, e := range events {
		if e.Kind == StartObject {
			count++
		}
	}
	if count != 3 {
		t.Errorf("expected 3 StartObject (outer + 2 features), got %d", count)
	}
}

func TestMalformedInput(t *testing.T) {
	src := New(strings.NewReader(`{"a":}`))
	var lastErr error
	for {
		_, err := src.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected error")
	}
	if _, ok := lastErr.(*MalformedInput); !ok {
		t.Errorf("expected *MalformedInput, got %T", lastErr)
	}
}
