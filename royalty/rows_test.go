package royalty

import "testing"

func makeRecords(header []string, rows ...[]string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				values[h] = row[i]
			}
		}
		records = append(records, Record{Headers: header, Values: values})
	}
	return records
}

func TestParseRows_MissingTitleIsFatal(t *testing.T) {
	records := makeRecords(
		[]string{"Song Title", "Composer Name"},
		[]string{"Moonrise", "A. Writer"},
		[]string{"", "B. Writer"},
	)
	rows, warnings, fatals := ParseRows(records, KindCatalog, "")
	if len(rows) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(rows))
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warnings))
	}
	if len(fatals) != 1 {
		t.Fatalf("expected 1 fatal, got %d", len(fatals))
	}
	if fatals[0].Code != CodeMissingTitle {
		t.Fatalf("expected code %s, got %s", CodeMissingTitle, fatals[0].Code)
	}
	if fatals[0].Line != 3 {
		t.Fatalf("expected fatal on spreadsheet line 3, got %d", fatals[0].Line)
	}
}

func TestParseRows_EmptyAmountsFatalOnlyForRoyalties(t *testing.T) {
	header := []string{"Song Title", "Usage Count", "Gross", "Net"}
	records := makeRecords(header, []string{"Moonrise", "", "", ""})

	_, _, fatals := ParseRows(records, KindRoyalty, "")
	if len(fatals) != 1 || fatals[0].Code != CodeEmptyAmounts {
		t.Fatalf("royalty row without amounts should be fatal, got %+v", fatals)
	}

	rows, _, fatals := ParseRows(records, KindCatalog, "")
	if len(fatals) != 0 || len(rows) != 1 {
		t.Fatalf("catalog rows have no amount requirement, got %d rows, %d fatals", len(rows), len(fatals))
	}
}

func TestParseRows_ZeroUsageIsNotEmpty(t *testing.T) {
	header := []string{"Song Title", "Usage Count", "Gross", "Net"}
	records := makeRecords(header, []string{"Moonrise", "0", "", ""})
	rows, _, fatals := ParseRows(records, KindRoyalty, "")
	if len(fatals) != 0 {
		t.Fatalf("an explicit zero usage count should pass, got %+v", fatals)
	}
	if rows[0].UsageCount != 0 {
		t.Fatalf("expected usage count 0, got %d", rows[0].UsageCount)
	}
}

func TestParseRows_ArtistMismatchIsWarningNotFatal(t *testing.T) {
	header := []string{"Song Title", "Artist", "Net"}
	records := makeRecords(header,
		[]string{"Moonrise", "Aurora", "1.50"},
		[]string{"Dawn", "aurora", "2.50"},
		[]string{"Dusk", "Someone Else", "3.50"},
	)
	rows, warnings, fatals := ParseRows(records, KindRoyalty, "Aurora")
	if len(fatals) != 0 {
		t.Fatalf("mismatch must not be fatal, got %+v", fatals)
	}
	if len(rows) != 3 {
		t.Fatalf("mismatched rows still import, expected 3 rows, got %d", len(rows))
	}
	if len(warnings) != 1 || warnings[0].Code != CodeArtistMismatch || warnings[0].Line != 4 {
		t.Fatalf("expected one mismatch warning on line 4, got %+v", warnings)
	}
	if len(rows[2].Warnings) != 1 {
		t.Fatalf("warning should also be attached to the row, got %+v", rows[2].Warnings)
	}
}

func TestLenientParsing_DefaultsInsteadOfFailing(t *testing.T) {
	if got := LenientInt("not a number"); got != 0 {
		t.Fatalf("LenientInt expected 0, got %d", got)
	}
	if got := LenientInt("-5"); got != 0 {
		t.Fatalf("negative usage expected 0, got %d", got)
	}
	if got := LenientInt(" 42 "); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := LenientDecimal("garbage"); !got.IsZero() {
		t.Fatalf("LenientDecimal expected zero, got %s", got.String())
	}
	if got := LenientDecimal("12.345"); got.String() != "12.345" {
		t.Fatalf("expected 12.345, got %s", got.String())
	}
}

func TestParseBroadcastDate_AcceptedLayouts(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"2024-02-15", "2024-02-15"},
		{"2024-02-15T10:30:00", "2024-02-15"},
		{"15/02/2024", "2024-02-15"},
		{"5/2/2024", "2024-02-05"},
	}
	for _, tc := range cases {
		got := parseBroadcastDate(tc.in)
		if got == nil {
			t.Fatalf("parseBroadcastDate(%q) returned nil", tc.in)
		}
		if got.Format("2006-01-02") != tc.expected {
			t.Fatalf("parseBroadcastDate(%q) expected %s, got %s", tc.in, tc.expected, got.Format("2006-01-02"))
		}
	}
	if got := parseBroadcastDate("soon"); got != nil {
		t.Fatalf("unparseable date should be nil, got %v", got)
	}
}
