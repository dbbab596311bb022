package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/xuri/excelize/v2"
)

// WriteQuarterlyRoyaltyExcel streams the quarterly royalty report as an
// xlsx workbook. Decimal cells are written as strings to keep the stored
// precision intact.
func WriteQuarterlyRoyaltyExcel(ctx context.Context, w io.Writer, artistId int, fromDate *time.Time, toDate *time.Time) error {
	data, err := GetQuarterlyRoyaltyReport(ctx, artistId, fromDate, toDate)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "Artist")
	f.SetCellValue(sheetName, "B1", "Quarter")
	f.SetCellValue(sheetName, "C1", "Items")
	f.SetCellValue(sheetName, "D1", "Usage Count")
	f.SetCellValue(sheetName, "E1", "Gross")
	f.SetCellValue(sheetName, "F1", "Net")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, utils.DereferencePtr(d.ArtistName, ""))
		f.SetCellValue(sheetName, "B"+row, d.Label())
		f.SetCellValue(sheetName, "C"+row, d.ItemCount)
		f.SetCellValue(sheetName, "D"+row, d.UsageCount)
		f.SetCellValue(sheetName, "E"+row, d.TotalGross.String())
		f.SetCellValue(sheetName, "F"+row, d.TotalNet.String())
	}

	return f.Write(w)
}

// WriteTrackRevenueExcel streams the track revenue ranking as xlsx.
func WriteTrackRevenueExcel(ctx context.Context, w io.Writer, artistId int, limit int, fromDate *time.Time, toDate *time.Time) error {
	data, err := GetTrackRevenueReport(ctx, artistId, limit, fromDate, toDate)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Track")
	f.SetCellValue(sheetName, "B1", "Artist")
	f.SetCellValue(sheetName, "C1", "Usage Count")
	f.SetCellValue(sheetName, "D1", "Gross")
	f.SetCellValue(sheetName, "E1", "Net")

	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, utils.DereferencePtr(d.TrackTitle, ""))
		f.SetCellValue(sheetName, "B"+row, utils.DereferencePtr(d.ArtistName, ""))
		f.SetCellValue(sheetName, "C"+row, d.UsageCount)
		f.SetCellValue(sheetName, "D"+row, d.TotalGross.String())
		f.SetCellValue(sheetName, "E"+row, d.TotalNet.String())
	}

	return f.Write(w)
}
