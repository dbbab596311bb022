package royalty

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportKind selects the validation rules applied to parsed rows.
type ImportKind int

const (
	KindCatalog ImportKind = iota
	KindRoyalty
)

// Issue is a per-row finding. Fatal issues block the whole import; warnings
// are surfaced to the operator for confirmation but do not block.
type Issue struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// CsvImportRow is one validated spreadsheet row, ready for track resolution
// and insertion. Line is the 1-based spreadsheet row (header row is 1).
type CsvImportRow struct {
	Line          int
	Title         string
	Composer      string
	Code          string
	Artist        string
	Split         decimal.Decimal
	Territory     string
	Source        string
	UsageCount    int
	Gross         decimal.Decimal
	AdminPercent  decimal.Decimal
	Net           decimal.Decimal
	BroadcastDate *time.Time
	Warnings      []Issue
}

// acceptedDateLayouts, most specific first.
var acceptedDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

// LenientInt parses a non-negative integer. Parse failure or a negative
// value yields 0: messy real-world usage columns default rather than fail.
func LenientInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LenientDecimal parses a decimal amount, defaulting to zero on failure.
// Same best-effort policy as LenientInt.
func LenientDecimal(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseBroadcastDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// ParseRows turns raw records into validated CsvImportRows. All rows are
// validated before any insertion starts: one fatal issue rejects the whole
// file. expectedArtist is only used for non-fatal mismatch warnings and may
// be empty.
func ParseRows(records []Record, kind ImportKind, expectedArtist string) ([]CsvImportRow, []Issue, []Issue) {
	rows := make([]CsvImportRow, 0, len(records))
	var warnings []Issue
	var fatals []Issue

	for i, rec := range records {
		line := i + 2 // data starts under the header row

		row := CsvImportRow{
			Line:          line,
			Title:         rec.Lookup(FieldTitle),
			Composer:      rec.Lookup(FieldComposer),
			Code:          rec.Lookup(FieldCode),
			Artist:        rec.Lookup(FieldArtist),
			Split:         LenientDecimal(rec.Lookup(FieldSplit)),
			Territory:     rec.Lookup(FieldTerritory),
			Source:        rec.Lookup(FieldSource),
			UsageCount:    LenientInt(rec.Lookup(FieldUsageCount)),
			Gross:         LenientDecimal(rec.Lookup(FieldGross)),
			AdminPercent:  LenientDecimal(rec.Lookup(FieldAdminPercent)),
			Net:           LenientDecimal(rec.Lookup(FieldNet)),
			BroadcastDate: parseBroadcastDate(rec.Lookup(FieldDate)),
		}

		if row.Title == "" {
			fatals = append(fatals, Issue{
				Line:    line,
				Code:    CodeMissingTitle,
				Message: fmt.Sprintf("row %d is missing a song title", line),
			})
			continue
		}

		if kind == KindRoyalty {
			// A royalty row with no usage figures at all carries no information.
			if rec.Lookup(FieldUsageCount) == "" && rec.Lookup(FieldGross) == "" && rec.Lookup(FieldNet) == "" {
				fatals = append(fatals, Issue{
					Line:    line,
					Code:    CodeEmptyAmounts,
					Message: fmt.Sprintf("row %d has no usage count or amounts", line),
					Detail:  row.Title,
				})
				continue
			}
		}

		if expectedArtist != "" && row.Artist != "" && !strings.EqualFold(strings.TrimSpace(row.Artist), strings.TrimSpace(expectedArtist)) {
			w := Issue{
				Line:    line,
				Code:    CodeArtistMismatch,
				Message: fmt.Sprintf("row %d artist %q does not match %q", line, row.Artist, expectedArtist),
				Detail:  row.Artist,
			}
			row.Warnings = append(row.Warnings, w)
			warnings = append(warnings, w)
		}

		rows = append(rows, row)
	}

	return rows, warnings, fatals
}
