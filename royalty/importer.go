package royalty

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InsertBatchSize keeps a single write under backend payload/row limits.
// Batches are issued sequentially, one awaited at a time.
const InsertBatchSize = 1000

// LineItem is one persisted row of usage/revenue data, keyed to a resolved
// track. Amounts stay decimal end to end.
type LineItem struct {
	TrackId       int
	ArtistId      int
	TrackTitle    string
	Territory     string
	Source        string
	UsageCount    int
	Gross         decimal.Decimal
	AdminPercent  decimal.Decimal
	Net           decimal.Decimal
	BroadcastDate *time.Time
}

// TrackResolver finds the track for (artist, title), creating it when
// absent. Implementations must populate composer/code only from non-empty
// source values, never overwriting existing data with blanks.
type TrackResolver interface {
	FindOrCreateTrack(ctx context.Context, artistId int, row CsvImportRow) (trackId int, err error)
}

// LineItemStore persists one batch of line items.
type LineItemStore interface {
	InsertLineItems(ctx context.Context, items []LineItem) error
}

// Importer turns validated rows into persisted line items. The stores are
// injected so the pipeline is testable without a live database.
type Importer struct {
	Tracks    TrackResolver
	Items     LineItemStore
	BatchSize int
}

func NewImporter(tracks TrackResolver, items LineItemStore) *Importer {
	return &Importer{Tracks: tracks, Items: items, BatchSize: InsertBatchSize}
}

// ImportRoyalties resolves tracks for every distinct title, maps rows to
// line items, and inserts them in fixed-size batches. On a mid-import
// failure the returned *Error reports how many rows were already committed;
// prior batches are not rolled back (the backing store has no cross-batch
// transaction), the operator decides how to proceed.
func (im *Importer) ImportRoyalties(ctx context.Context, artistId int, rows []CsvImportRow) (int, error) {
	batchSize := im.BatchSize
	if batchSize <= 0 {
		batchSize = InsertBatchSize
	}

	// Resolve each distinct title once, in first-seen order.
	trackIds := make(map[string]int)
	for _, row := range rows {
		if _, ok := trackIds[row.Title]; ok {
			continue
		}
		id, err := im.Tracks.FindOrCreateTrack(ctx, artistId, row)
		if err != nil {
			return 0, &Error{
				Code:    CodeTrackResolution,
				Message: fmt.Sprintf("could not resolve track %q", row.Title),
				Detail:  err.Error(),
			}
		}
		trackIds[row.Title] = id
	}

	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		trackId := trackIds[row.Title]
		if trackId == 0 {
			// Never silently drop orphaned rows.
			return 0, &Error{
				Code:    CodeOrphanRow,
				Message: fmt.Sprintf("row %d did not resolve to a track", row.Line),
				Detail:  row.Title,
			}
		}
		items = append(items, LineItem{
			TrackId:       trackId,
			ArtistId:      artistId,
			TrackTitle:    row.Title,
			Territory:     row.Territory,
			Source:        row.Source,
			UsageCount:    row.UsageCount,
			Gross:         row.Gross,
			AdminPercent:  row.AdminPercent,
			Net:           row.Net,
			BroadcastDate: row.BroadcastDate,
		})
	}

	inserted := 0
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := im.Items.InsertLineItems(ctx, items[start:end]); err != nil {
			return inserted, &Error{
				Code:     CodeBatchInsert,
				Message:  fmt.Sprintf("insert failed after %d rows", inserted),
				Detail:   err.Error(),
				Inserted: inserted,
			}
		}
		inserted = end
	}

	return inserted, nil
}
