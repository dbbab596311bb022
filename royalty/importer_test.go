package royalty

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeTracks struct {
	nextId  int
	byTitle map[string]int
	calls   int
	failOn  string
}

func newFakeTracks() *fakeTracks {
	return &fakeTracks{nextId: 1, byTitle: map[string]int{}}
}

func (f *fakeTracks) FindOrCreateTrack(_ context.Context, _ int, row CsvImportRow) (int, error) {
	f.calls++
	if f.failOn != "" && row.Title == f.failOn {
		return 0, errors.New("resolver unavailable")
	}
	if id, ok := f.byTitle[row.Title]; ok {
		return id, nil
	}
	id := f.nextId
	f.nextId++
	f.byTitle[row.Title] = id
	return id, nil
}

type fakeItems struct {
	batches   [][]LineItem
	failBatch int // 1-based batch index that fails; 0 never fails
}

func (f *fakeItems) InsertLineItems(_ context.Context, items []LineItem) error {
	if f.failBatch > 0 && len(f.batches)+1 == f.failBatch {
		return errors.New("deadlock")
	}
	batch := make([]LineItem, len(items))
	copy(batch, items)
	f.batches = append(f.batches, batch)
	return nil
}

func royaltyRows(n int) []CsvImportRow {
	rows := make([]CsvImportRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, CsvImportRow{
			Line:       i + 2,
			Title:      fmt.Sprintf("Track %d", i%5),
			UsageCount: 1,
			Net:        decimal.RequireFromString("0.01"),
		})
	}
	return rows
}

func TestImportRoyalties_ResolvesEachTitleOnce(t *testing.T) {
	tracks := newFakeTracks()
	items := &fakeItems{}
	im := NewImporter(tracks, items)

	inserted, err := im.ImportRoyalties(context.Background(), 7, royaltyRows(100))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if inserted != 100 {
		t.Fatalf("expected 100 inserted, got %d", inserted)
	}
	if tracks.calls != 5 {
		t.Fatalf("expected one resolution per distinct title (5), got %d", tracks.calls)
	}
	if items.batches[0][0].ArtistId != 7 {
		t.Fatalf("line items must carry the artist id, got %d", items.batches[0][0].ArtistId)
	}
}

func TestImportRoyalties_BatchesOfFixedSize(t *testing.T) {
	tracks := newFakeTracks()
	items := &fakeItems{}
	im := NewImporter(tracks, items)

	inserted, err := im.ImportRoyalties(context.Background(), 1, royaltyRows(2500))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if inserted != 2500 {
		t.Fatalf("expected 2500 inserted, got %d", inserted)
	}
	sizes := []int{len(items.batches[0]), len(items.batches[1]), len(items.batches[2])}
	if len(items.batches) != 3 || sizes[0] != 1000 || sizes[1] != 1000 || sizes[2] != 500 {
		t.Fatalf("expected batches [1000 1000 500], got %v", sizes)
	}
}

func TestImportRoyalties_BatchFailureReportsInsertedCount(t *testing.T) {
	tracks := newFakeTracks()
	items := &fakeItems{failBatch: 3}
	im := NewImporter(tracks, items)

	inserted, err := im.ImportRoyalties(context.Background(), 1, royaltyRows(2500))
	if err == nil {
		t.Fatal("expected the third batch to fail")
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *royalty.Error, got %T", err)
	}
	if rerr.Code != CodeBatchInsert {
		t.Fatalf("expected code %s, got %s", CodeBatchInsert, rerr.Code)
	}
	if inserted != 2000 || rerr.Inserted != 2000 {
		t.Fatalf("expected 2000 committed rows reported, got %d / %d", inserted, rerr.Inserted)
	}
}

func TestImportRoyalties_ResolverFailureBlocksInsertion(t *testing.T) {
	tracks := newFakeTracks()
	tracks.failOn = "Track 3"
	items := &fakeItems{}
	im := NewImporter(tracks, items)

	_, err := im.ImportRoyalties(context.Background(), 1, royaltyRows(50))
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Code != CodeTrackResolution {
		t.Fatalf("expected track resolution error, got %v", err)
	}
	if len(items.batches) != 0 {
		t.Fatalf("nothing may be inserted when resolution fails, got %d batches", len(items.batches))
	}
}
