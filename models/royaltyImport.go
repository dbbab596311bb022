package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
)

const importTimeout = 30 * time.Second

// RoyaltyImport records one import run against an uploaded file, catalog or
// royalty, with its outcome.
type RoyaltyImport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ArtistId      int       `gorm:"not null;index" json:"artist_id"`
	UploadId      int       `gorm:"not null;index" json:"upload_id"`
	Kind          string    `gorm:"size:20;not null" json:"kind"` // CATALOG|ROYALTY
	RowCount      int       `gorm:"not null;default:0" json:"row_count"`
	InsertedCount int       `gorm:"not null;default:0" json:"inserted_count"`
	WarningCount  int       `gorm:"not null;default:0" json:"warning_count"`
	Succeeded     bool      `gorm:"not null;default:false" json:"succeeded"`
	ErrorCode     string    `gorm:"size:50" json:"error_code"`
	ErrorDetail   string    `gorm:"type:text" json:"error_detail"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ImportResult is returned to the operator after a run.
type ImportResult struct {
	ImportId      int             `json:"import_id"`
	RowCount      int             `json:"row_count"`
	InsertedCount int             `json:"inserted_count"`
	Warnings      []royalty.Issue `json:"warnings,omitempty"`
	Fatals        []royalty.Issue `json:"fatals,omitempty"`
}

// readUploadRecords pulls the stored file back from GCS and parses it.
func readUploadRecords(ctx context.Context, upload *Upload) ([]royalty.Record, error) {
	rc, err := OpenUpload(ctx, upload)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return royalty.ReadSpreadsheet(rc, upload.FileName)
}

// ImportCatalog loads an uploaded catalog file into the artist's track
// list. All rows are validated before the first write; a single fatal issue
// rejects the whole file.
func ImportCatalog(ctx context.Context, artistId int, uploadId int) (*ImportResult, error) {
	logger := config.GetLogger()

	artist, err := GetArtist(ctx, artistId)
	if err != nil {
		return nil, err
	}
	upload, err := GetUpload(ctx, uploadId)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	// One import at a time per artist.
	lock, err := utils.ArtistLock(ctx, artistId, "import", "models", "ImportCatalog")
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.Background())

	records, err := readUploadRecords(ctx, upload)
	if err != nil {
		return nil, err
	}

	rows, warnings, fatals := royalty.ParseRows(records, royalty.KindCatalog, artist.Name)
	result := &ImportResult{RowCount: len(records), Warnings: warnings, Fatals: fatals}
	if len(fatals) > 0 {
		recordImportRun(ctx, artistId, uploadId, "CATALOG", result, errors.New("validation failed"))
		return result, errors.New("file has validation errors and was not imported")
	}

	db := config.GetDB()
	inserted, resolveErr := resolveCatalogRows(ctx, &trackResolver{db: db}, artistId, rows)
	result.InsertedCount = inserted
	if resolveErr != nil {
		config.LogError(logger, "models", "ImportCatalog", "resolve track", inserted, resolveErr)
		recordImportRun(ctx, artistId, uploadId, "CATALOG", result, resolveErr)
		return result, resolveErr
	}
	recordImportRun(ctx, artistId, uploadId, "CATALOG", result, nil)
	return result, nil
}

// resolveCatalogRows upserts one track per row. When resolution fails
// mid-file it reports how many rows were already committed.
func resolveCatalogRows(ctx context.Context, resolver royalty.TrackResolver, artistId int, rows []royalty.CsvImportRow) (int, error) {
	inserted := 0
	for _, row := range rows {
		if _, err := resolver.FindOrCreateTrack(ctx, artistId, row); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// ImportRoyalties loads an uploaded royalty statement. Track resolution and
// insertion run through the core import pipeline in fixed-size batches; a
// mid-import failure reports how many rows were committed.
func ImportRoyalties(ctx context.Context, artistId int, uploadId int) (*ImportResult, error) {
	logger := config.GetLogger()

	artist, err := GetArtist(ctx, artistId)
	if err != nil {
		return nil, err
	}
	upload, err := GetUpload(ctx, uploadId)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	lock, err := utils.ArtistLock(ctx, artistId, "import", "models", "ImportRoyalties")
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.Background())

	records, err := readUploadRecords(ctx, upload)
	if err != nil {
		return nil, err
	}

	rows, warnings, fatals := royalty.ParseRows(records, royalty.KindRoyalty, artist.Name)
	result := &ImportResult{RowCount: len(records), Warnings: warnings, Fatals: fatals}
	if len(fatals) > 0 {
		recordImportRun(ctx, artistId, uploadId, "ROYALTY", result, errors.New("validation failed"))
		return result, errors.New("file has validation errors and was not imported")
	}

	db := config.GetDB()

	// Record the run first so line items can reference it.
	run := RoyaltyImport{
		ArtistId:     artistId,
		UploadId:     uploadId,
		Kind:         "ROYALTY",
		RowCount:     len(records),
		WarningCount: len(warnings),
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	result.ImportId = run.ID

	importer := royalty.NewImporter(
		&trackResolver{db: db},
		&lineItemStore{db: db, importId: run.ID},
	)
	inserted, importErr := importer.ImportRoyalties(ctx, artistId, rows)
	result.InsertedCount = inserted

	updates := map[string]interface{}{
		"inserted_count": inserted,
		"succeeded":      importErr == nil,
	}
	var rerr *royalty.Error
	if errors.As(importErr, &rerr) {
		updates["error_code"] = rerr.Code
		updates["error_detail"] = rerr.Detail
	} else if importErr != nil {
		updates["error_detail"] = importErr.Error()
	}
	if err := db.WithContext(ctx).Model(&run).Updates(updates).Error; err != nil {
		config.LogError(logger, "models", "ImportRoyalties", "update import run", run.ID, err)
	}

	if importErr != nil {
		return result, importErr
	}

	// Import completed: let downstream systems know.
	if err := PublishEvent(ctx, db.WithContext(ctx), artistId, run.ID, EventRefRoyaltyImport, EventActionCreate, result); err != nil {
		config.LogError(logger, "models", "ImportRoyalties", "publish event", run.ID, err)
	}
	return result, nil
}

// GetImports lists an artist's import history, newest first.
func GetImports(ctx context.Context, artistId int) ([]*RoyaltyImport, error) {
	db := config.GetDB()
	var results []*RoyaltyImport
	err := db.WithContext(ctx).
		Where("artist_id = ?", artistId).
		Order("id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func recordImportRun(ctx context.Context, artistId, uploadId int, kind string, result *ImportResult, runErr error) {
	db := config.GetDB()
	run := RoyaltyImport{
		ArtistId:      artistId,
		UploadId:      uploadId,
		Kind:          kind,
		RowCount:      result.RowCount,
		InsertedCount: result.InsertedCount,
		WarningCount:  len(result.Warnings),
		Succeeded:     runErr == nil,
	}
	if runErr != nil {
		run.ErrorDetail = runErr.Error()
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		config.LogError(config.GetLogger(), "models", "recordImportRun", "create import run", artistId, err)
		return
	}
	result.ImportId = run.ID
}
