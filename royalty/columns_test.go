package royalty

import "testing"

func TestLookup_MatchesHeaderVariants(t *testing.T) {
	cases := []struct {
		header string
		field  Field
	}{
		{"Song Title", FieldTitle},
		{"Track Title", FieldTitle},
		{"title", FieldTitle},
		{"ISRC", FieldCode},
		{"ISWC", FieldCode},
		{"Composer Name", FieldComposer},
		{"composer", FieldComposer},
		{"Usage Count", FieldUsageCount},
		{"Plays", FieldUsageCount},
		{"Gross", FieldGross},
		{"Gross Amount", FieldGross},
		{"Admin %", FieldAdminPercent},
		{"Net", FieldNet},
		{"Net Amount", FieldNet},
		{"Date", FieldDate},
		{"Broadcast Date", FieldDate},
	}
	for _, tc := range cases {
		rec := Record{Headers: []string{tc.header}, Values: map[string]string{tc.header: "x"}}
		if got := rec.Lookup(tc.field); got != "x" {
			t.Fatalf("Lookup(%s) with header %q expected %q, got %q", tc.field, tc.header, "x", got)
		}
	}
}

func TestLookup_ExactSpellingWinsOverCaseInsensitive(t *testing.T) {
	rec := Record{
		Headers: []string{"TITLE", "Song Title"},
		Values:  map[string]string{"TITLE": "loose", "Song Title": "exact"},
	}
	if got := rec.Lookup(FieldTitle); got != "exact" {
		t.Fatalf("expected the canonical spelling to win, got %q", got)
	}
}

func TestLookup_SkipsEmptyCells(t *testing.T) {
	rec := Record{
		Headers: []string{"Song Title", "Track Title"},
		Values:  map[string]string{"Song Title": "  ", "Track Title": "Moonrise"},
	}
	if got := rec.Lookup(FieldTitle); got != "Moonrise" {
		t.Fatalf("expected fallthrough to the next matching column, got %q", got)
	}
}

func TestLookup_IsDeterministic(t *testing.T) {
	rec := Record{
		Headers: []string{"Territory", "Region"},
		Values:  map[string]string{"Territory": "MM", "Region": "SG"},
	}
	first := rec.Lookup(FieldTerritory)
	for i := 0; i < 50; i++ {
		if got := rec.Lookup(FieldTerritory); got != first {
			t.Fatalf("lookup flapped between runs: %q then %q", first, got)
		}
	}
	if first != "MM" {
		t.Fatalf("expected the earlier spelling in the variant list to win, got %q", first)
	}
}
