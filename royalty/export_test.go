package royalty

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWriteRoyaltyCSV_RoundTripsThroughTheParser(t *testing.T) {
	rows := []RoyaltyExportRow{
		{
			Item: LineItem{
				TrackTitle:    "Moon, Rise",
				Territory:     "MM",
				Source:        "Radio \"Gold\"",
				UsageCount:    12,
				Gross:         decimal.RequireFromString("10.123456"),
				AdminPercent:  decimal.RequireFromString("15"),
				Net:           decimal.RequireFromString("8.6049376"),
				BroadcastDate: dateOn("2024-02-15"),
			},
			Code:     "T-123456789-0",
			Composer: "A. Writer",
		},
		{
			Item: LineItem{
				TrackTitle: "Dawn",
				UsageCount: 1,
				Gross:      decimal.RequireFromString("0.01"),
				Net:        decimal.RequireFromString("0.01"),
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteRoyaltyCSV(&buf, rows); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	records, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-reading export failed: %v", err)
	}
	parsed, warnings, fatals := ParseRows(records, KindRoyalty, "")
	if len(fatals) != 0 {
		t.Fatalf("exported file must re-import without fatals, got %+v", fatals)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 rows back, got %d", len(parsed))
	}

	got := parsed[0]
	if got.Title != "Moon, Rise" {
		t.Fatalf("commas must survive quoting, got %q", got.Title)
	}
	if got.Source != "Radio \"Gold\"" {
		t.Fatalf("embedded quotes must survive, got %q", got.Source)
	}
	// Full stored precision, no rounding on export.
	if got.Net.String() != "8.6049376" {
		t.Fatalf("expected net 8.6049376, got %s", got.Net.String())
	}
	if got.BroadcastDate == nil || got.BroadcastDate.Format("2006-01-02") != "2024-02-15" {
		t.Fatalf("expected broadcast date 2024-02-15, got %v", got.BroadcastDate)
	}
	if parsed[1].BroadcastDate != nil {
		t.Fatalf("empty date cell must stay nil, got %v", parsed[1].BroadcastDate)
	}
}

func TestWriteCatalogCSV(t *testing.T) {
	rows := []CatalogRow{
		{Title: "Moonrise", Composer: "A. Writer", Code: "ISRC001", Artist: "Aurora", Split: "50"},
	}
	var buf bytes.Buffer
	if err := WriteCatalogCSV(&buf, rows); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "Song Title,Composer Name,ISRC,Artist,Split" {
		t.Fatalf("unexpected header: %s", lines[0])
	}

	records, err := ReadCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("re-reading export failed: %v", err)
	}
	parsed, _, fatals := ParseRows(records, KindCatalog, "")
	if len(fatals) != 0 || len(parsed) != 1 {
		t.Fatalf("catalog export must round trip, got %d rows, %+v", len(parsed), fatals)
	}
	if parsed[0].Composer != "A. Writer" || parsed[0].Code != "ISRC001" {
		t.Fatalf("unexpected round-tripped row: %+v", parsed[0])
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename("aurora", 2024, 1, dateOn("2024-05-01").UTC()); got != "royalties-aurora-2024-Q1.csv" {
		t.Fatalf("unexpected filename: %s", got)
	}
	if got := ExportFilename("aurora", 0, 0, dateOn("2024-05-01").UTC()); got != "royalties-aurora-20240501.csv" {
		t.Fatalf("unexpected filename: %s", got)
	}
}
