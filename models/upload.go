package models

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
)

// Upload is a spreadsheet stored in GCS, waiting to be imported. Imports
// reference uploads by id, so the same file can be re-run after fixing
// mapping problems without another upload.
type Upload struct {
	ID         int       `gorm:"primary_key" json:"id"`
	ArtistId   int       `gorm:"index" json:"artist_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	ObjectName string    `gorm:"size:255;not null;uniqueIndex" json:"object_name"`
	UploadedBy string    `gorm:"size:100" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateUpload streams the file to GCS under a generated object name and
// records it.
func CreateUpload(ctx context.Context, artistId int, fileName string, content io.Reader) (*Upload, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, errors.New("invalid file type: only .csv and .xlsx files are allowed")
	}
	if artistId > 0 {
		if err := utils.ValidateResourceId[Artist](ctx, 0, artistId); err != nil {
			return nil, err
		}
	}

	objectName := utils.GenerateUniqueFilename() + ext
	if err := utils.UploadSpreadsheetToGCS(ctx, objectName, content); err != nil {
		return nil, err
	}

	uploadedBy, _ := utils.GetUsernameFromContext(ctx)
	upload := Upload{
		ArtistId:   artistId,
		FileName:   fileName,
		ObjectName: objectName,
		UploadedBy: uploadedBy,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&upload).Error; err != nil {
		// Keep the bucket consistent with the table.
		_ = utils.DeleteObjectFromGCS(ctx, objectName)
		return nil, err
	}
	return &upload, nil
}

func GetUpload(ctx context.Context, id int) (*Upload, error) {
	return utils.FetchSingleModel[Upload](ctx, id)
}

// OpenUpload streams the stored spreadsheet back from GCS.
func OpenUpload(ctx context.Context, upload *Upload) (io.ReadCloser, error) {
	return utils.OpenObjectFromGCS(ctx, upload.ObjectName)
}

func DeleteUpload(ctx context.Context, id int) (*Upload, error) {
	upload, err := utils.FetchSingleModel[Upload](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.DeleteObjectFromGCS(ctx, upload.ObjectName); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(upload).Error; err != nil {
		return nil, err
	}
	return upload, nil
}
