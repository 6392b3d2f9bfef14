package query

import (
	"errors"
	"testing"
)

func TestParseEmptyQuery(t *testing.T) {
	lq, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if lq != nil {
		t.Errorf("expected nil LogicalQuery for empty query, got %#v", lq)
	}
}

func TestParseBareword(t *testing.T) {
	lq, err := Parse("Berlin")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	term, ok := lq.(TermQuery)
	if !ok {
		t.Fatalf("expected TermQuery, got %T", lq)
	}
	s, ok := term.Part.(StringQueryPart)
	if !ok || s.Value != "Berlin" {
		t.Errorf("unexpected part: %#v", term.Part)
	}
}

func TestParseQuotedString(t *testing.T) {
	lq, err := Parse(`"New York"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	term := lq.(TermQuery)
	s := term.Part.(StringQueryPart)
	if s.Value != "New York" {
		t.Errorf("expected %q, got %q", "New York", s.Value)
	}
}

func TestParseKeyValue(t *testing.T) {
	lq, err := Parse("name:Berlin")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	term := lq.(TermQuery)
	kv, ok := term.Part.(KeyValueQueryPart)
	if !ok || kv.Key != "name" || kv.Value != "Berlin" || kv.Op != OpEQ {
		t.Errorf("unexpected part: %#v", term.Part)
	}
}

func TestParseComparisonOperators(t *testing.T) {
	cases := []struct {
		input string
		op    CompareOp
	}{
		{"pop>100", OpGT},
		{"pop>=100", OpGTE},
		{"pop<100", OpLT},
		{"pop<=100", OpLTE},
	}
	for _, c := range cases {
		lq, err := Parse(c.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.input, err)
		}
		kv := lq.(TermQuery).Part.(KeyValueQueryPart)
		if kv.Op != c.op || kv.Key != "pop" || kv.Value != "100" {
			t.Errorf("Parse(%q): unexpected %#v", c.input, kv)
		}
	}
}

func TestParseAndOr(t *testing.T) {
	lq, err := Parse("(error OR warn) AND NOT debug")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := lq.(AndQuery)
	if !ok || len(and.Terms) != 2 {
		t.Fatalf("expected top-level AndQuery with 2 terms, got %#v", lq)
	}
	if _, ok := and.Terms[0].(OrQuery); !ok {
		t.Errorf("expected first term to be an OrQuery, got %T", and.Terms[0])
	}
	if _, ok := and.Terms[1].(NotQuery); !ok {
		t.Errorf("expected second term to be a NotQuery, got %T", and.Terms[1])
	}
}

func TestParseImplicitAnd(t *testing.T) {
	lq, err := Parse("Berlin Hamburg")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	and, ok := lq.(AndQuery)
	if !ok || len(and.Terms) != 2 {
		t.Fatalf("expected implicit AND of 2 terms, got %#v", lq)
	}
}

func TestParseBboxTerm(t *testing.T) {
	lq, err := Parse("[1,2,3,4]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bbox := lq.(TermQuery).Part.(BboxQueryPart)
	if bbox != (BboxQueryPart{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}) {
		t.Errorf("unexpected bbox: %+v", bbox)
	}
}

func TestParseUnmatchedParen(t *testing.T) {
	_, err := Parse("(Berlin")
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !errors.Is(err, ErrUnmatchedParen) {
		t.Errorf("expected ErrUnmatchedParen, got %v", pe.Err)
	}
}

func TestParseUnterminatedQuote(t *testing.T) {
	_, err := Parse(`"Berlin`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnterminatedString) {
		t.Errorf("expected ErrUnterminatedString, got %v", err)
	}
}
