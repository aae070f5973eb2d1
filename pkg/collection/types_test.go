package collection

import "testing"

func TestParseSort(t *testing.T) {
	cases := map[string]Sort{
		"":        SortNewest,
		"newest":  SortNewest,
		" Oldest": SortOldest,
		"AZ":      SortAZ,
		"a-z":     SortAZ,
		"za":      SortZA,
	}
	for raw, want := range cases {
		got, err := ParseSort(raw)
		if err != nil {
			t.Fatalf("ParseSort(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseSort(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseSort("random"); err == nil {
		t.Fatal("expected error for unknown sort")
	}
}

func TestSortNextCycles(t *testing.T) {
	s := SortNewest
	for range AllSorts() {
		s = s.Next()
	}
	if s != SortNewest {
		t.Fatalf("expected to cycle back to newest, got %q", s)
	}
}
