package window

import (
	"bytes"
	"testing"
)

func TestFeedAndSubstring(t *testing.T) {
	w := New()
	w.Feed([]byte("hello "))
	w.Feed([]byte("world"))

	got, err := w.Substring(0, 11)
	if err != nil {
		t.Fatalf("Substring: %v", err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Errorf("got %q", got)
	}
}

func TestAdvanceToReleasesPrefix(t *testing.T) {
	w := New()
	w.Feed([]byte("0123456789"))
	w.AdvanceTo(5)

	if w.ReleasedPrefix() != 5 {
		t.Errorf("ReleasedPrefix() = %d, want 5", w.ReleasedPrefix())
	}
	if w.Retained() != 5 {
		t.Errorf("Retained() = %d, want 5", w.Retained())
	}

	if _, err := w.Substring(0, 5); err == nil {
		t.Error("expected error reading released range")
	}

	got, err := w.Substring(5, 10)
	if err != nil {
		t.Fatalf("Substring: %v", err)
	}
	if !bytes.Equal(got, []byte("56789")) {
		t.Errorf("got %q", got)
	}
}

func TestSubstringBeyondFedData(t *testing.T) {
	w := New()
	w.Feed([]byte("abc"))
	if _, err := w.Substring(0, 10); err == nil {
		t.Error("expected error for range beyond fed data")
	}
}

func TestAdvanceToIsIdempotentAndMonotonic(t *testing.T) {
	w := New()
	w.Feed([]byte("0123456789"))
	w.AdvanceTo(5)
	w.AdvanceTo(3) // no-op, must not un-release
	if w.ReleasedPrefix() != 5 {
		t.Errorf("ReleasedPrefix() = %d, want 5 (AdvanceTo must be monotonic)", w.ReleasedPrefix())
	}
}

func TestAdvanceToClampsToEnd(t *testing.T) {
	w := New()
	w.Feed([]byte("abc"))
	w.AdvanceTo(100)
	if w.ReleasedPrefix() != 3 {
		t.Errorf("ReleasedPrefix() = %d, want 3", w.ReleasedPrefix())
	}
}
