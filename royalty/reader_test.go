package royalty

import (
	"strings"
	"testing"
)

func TestReadCSV_ToleratesBOMAndRaggedRows(t *testing.T) {
	input := "\uFEFFSong Title,Net\n" +
		"Moonrise,1.50\n" +
		"Dawn\n" + // short row
		"Dusk,2.50,extra\n" // long row
	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Lookup(FieldTitle) != "Moonrise" {
		t.Fatalf("BOM must not break the first header, got %q", records[0].Lookup(FieldTitle))
	}
	if records[1].Lookup(FieldNet) != "" {
		t.Fatalf("short row should leave trailing columns empty, got %q", records[1].Lookup(FieldNet))
	}
	if records[2].Lookup(FieldNet) != "2.50" {
		t.Fatalf("long row should keep mapped columns, got %q", records[2].Lookup(FieldNet))
	}
}

func TestReadSpreadsheet_RejectsUnknownExtensions(t *testing.T) {
	if _, err := ReadSpreadsheet(strings.NewReader(""), "notes.pdf"); err == nil {
		t.Fatal("expected an error for unsupported file types")
	}
}

func TestReadCSV_EmptyFile(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}
