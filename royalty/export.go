package royalty

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// Export headers use the canonical spellings so an exported file re-imports
// cleanly through the same header matcher.
var (
	CatalogExportHeader = []string{"Song Title", "Composer Name", "ISRC", "Artist", "Split"}
	RoyaltyExportHeader = []string{"Song Title", "ISWC", "Composer", "Date", "Territory", "Source", "Usage Count", "Gross", "Admin %", "Net"}
)

// CatalogRow is one track of an artist's catalog, ready for export.
type CatalogRow struct {
	Title    string
	Composer string
	Code     string
	Artist   string
	Split    string
}

// WriteCatalogCSV writes the artist's catalog as RFC 4180 CSV.
func WriteCatalogCSV(w io.Writer, rows []CatalogRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CatalogExportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Title, row.Composer, row.Code, row.Artist, row.Split}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RoyaltyExportRow pairs a line item with its track's catalog fields.
type RoyaltyExportRow struct {
	Item     LineItem
	Code     string
	Composer string
}

// WriteRoyaltyCSV writes line items as RFC 4180 CSV. Amounts are rendered
// at full stored precision, never rounded for export.
func WriteRoyaltyCSV(w io.Writer, rows []RoyaltyExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RoyaltyExportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		date := ""
		if row.Item.BroadcastDate != nil {
			date = row.Item.BroadcastDate.Format("2006-01-02")
		}
		if err := cw.Write([]string{
			row.Item.TrackTitle,
			row.Code,
			row.Composer,
			date,
			row.Item.Territory,
			row.Item.Source,
			strconv.Itoa(row.Item.UsageCount),
			row.Item.Gross.String(),
			row.Item.AdminPercent.String(),
			row.Item.Net.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename builds the download name for an artist's quarterly export,
// e.g. "royalties-aurora-2024-Q1.csv".
func ExportFilename(artistSlug string, year, quarter int, at time.Time) string {
	if year == 0 {
		return "royalties-" + artistSlug + "-" + at.Format("20060102") + ".csv"
	}
	return "royalties-" + artistSlug + "-" + QuarterLabel(year, quarter) + ".csv"
}
