package source_test

import (
	"testing"

	"kiln/internal/source"
)

func TestSpanCover(t *testing.T) {
	a := source.Span{Unit: 1, Start: 10, End: 20}
	b := source.Span{Unit: 1, Start: 5, End: 15}
	got := a.Cover(b)
	if got.Start != 5 || got.End != 20 {
		t.Fatalf("Cover = %+v", got)
	}

	other := source.Span{Unit: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("cross-unit cover must be a no-op, got %+v", got)
	}
}

func TestSpanBasics(t *testing.T) {
	s := source.Span{Unit: 3, Start: 7, End: 7}
	if !s.Empty() || s.Len() != 0 {
		t.Fatalf("empty span misreported: %+v", s)
	}
	s.End = 12
	if s.Len() != 5 {
		t.Fatalf("Len = %d, want 5", s.Len())
	}
	if s.String() != "3:7-12" {
		t.Fatalf("String = %q", s.String())
	}
}
