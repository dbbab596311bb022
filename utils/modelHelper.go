package utils

import (
	"context"
	"errors"
	"reflect"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model from db, scoped to an artist
// (artistId is used in the WHERE clause, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, artistId int, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("artist_id = ?", artistId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// check if id exists, scoped to artistId when non-zero, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, artistId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, artistId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, artistId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, artistId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, artistId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE artist_id = ? AND $condition
// artistId can be zero for admin-wide queries
func ResourceCountWhere[T any](ctx context.Context, artistId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if artistId != 0 {
		dbCtx = dbCtx.Where("artist_id = ?", artistId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
