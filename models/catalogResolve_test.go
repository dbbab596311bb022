package models

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
)

type stubTrackResolver struct {
	failOnCall int
	calls      int
}

func (s *stubTrackResolver) FindOrCreateTrack(ctx context.Context, artistId int, row royalty.CsvImportRow) (int, error) {
	s.calls++
	if s.calls == s.failOnCall {
		return 0, errors.New("boom")
	}
	return s.calls, nil
}

func catalogRows(titles ...string) []royalty.CsvImportRow {
	rows := make([]royalty.CsvImportRow, 0, len(titles))
	for _, title := range titles {
		rows = append(rows, royalty.CsvImportRow{Title: title})
	}
	return rows
}

func TestResolveCatalogRows(t *testing.T) {
	ctx := context.Background()
	rows := catalogRows("Moonrise", "Dawn", "Dusk", "Tide", "Ember")

	t.Run("all rows resolve", func(t *testing.T) {
		inserted, err := resolveCatalogRows(ctx, &stubTrackResolver{}, 1, rows)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inserted != 5 {
			t.Fatalf("expected 5 inserted, got %d", inserted)
		}
	})

	t.Run("mid-file failure reports committed count", func(t *testing.T) {
		inserted, err := resolveCatalogRows(ctx, &stubTrackResolver{failOnCall: 3}, 1, rows)
		if err == nil {
			t.Fatal("expected an error")
		}
		if inserted != 2 {
			t.Fatalf("expected 2 committed rows before the failure, got %d", inserted)
		}
	})
}
