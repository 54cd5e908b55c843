package todomodel

import "testing"

func TestFieldsEqualTagOrderInsensitive(t *testing.T) {
	a := Fields{Title: "t", Tags: []string{"a", "b"}}
	b := Fields{Title: "t", Tags: []string{"b", "a"}}
	if !a.Equal(b) {
		t.Fatalf("expected tag sets to compare equal regardless of order")
	}
}

func TestFieldsEqualDetectsDifference(t *testing.T) {
	a := Fields{Title: "t", Position: 1}
	b := Fields{Title: "t", Position: 2}
	if a.Equal(b) {
		t.Fatalf("expected different position to compare unequal")
	}
}

func TestNormalizeTagsNilBecomesEmptySlice(t *testing.T) {
	out := NormalizeTags(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected non-nil empty slice, got %#v", out)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusCompleted, StatusCanceled} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("bogus").Valid() {
		t.Fatalf("expected bogus status to be invalid")
	}
}
