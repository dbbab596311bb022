package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Track struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ArtistId  int             `gorm:"not null;index;uniqueIndex:uix_track_artist_title,priority:1" json:"artist_id"`
	Title     string          `gorm:"size:255;not null;uniqueIndex:uix_track_artist_title,priority:2" json:"title" binding:"required"`
	Composer  string          `gorm:"size:255" json:"composer"`
	Code      string          `gorm:"size:64;index" json:"code"`
	Split     decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"split"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTrack struct {
	Title    string `json:"title" binding:"required"`
	Composer string `json:"composer"`
	Code     string `json:"code"`
	Split    string `json:"split"`
}

func CreateTrack(ctx context.Context, artistId int, input *NewTrack) (*Track, error) {

	if err := utils.ValidateResourceId[Artist](ctx, 0, artistId); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Track](ctx, artistId, "title", input.Title, 0); err != nil {
		return nil, err
	}

	split := decimal.Zero
	if input.Split != "" {
		parsed, err := utils.ParseDecimal(input.Split)
		if err != nil {
			return nil, err
		}
		split = parsed
	}

	track := Track{
		ArtistId: artistId,
		Title:    strings.TrimSpace(input.Title),
		Composer: input.Composer,
		Code:     input.Code,
		Split:    split,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&track).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artistId, track.ID, EventRefTrack, EventActionCreate, &track)
	})
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func UpdateTrack(ctx context.Context, artistId int, id int, input *NewTrack) (*Track, error) {

	track, err := utils.FetchModel[Track](ctx, artistId, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Track](ctx, artistId, "title", input.Title, id); err != nil {
		return nil, err
	}

	split := track.Split
	if input.Split != "" {
		parsed, err := utils.ParseDecimal(input.Split)
		if err != nil {
			return nil, err
		}
		split = parsed
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(track).Updates(map[string]interface{}{
		"Title":    strings.TrimSpace(input.Title),
		"Composer": input.Composer,
		"Code":     input.Code,
		"Split":    split,
	}).Error
	if err != nil {
		return nil, err
	}
	return track, nil
}

func GetTrack(ctx context.Context, artistId int, id int) (*Track, error) {
	return utils.FetchModel[Track](ctx, artistId, id)
}

func GetTracks(ctx context.Context, artistId int, title *string) ([]*Track, error) {
	db := config.GetDB()
	var results []*Track

	dbCtx := db.WithContext(ctx).Where("artist_id = ?", artistId)
	if title != nil && len(*title) > 0 {
		dbCtx = dbCtx.Where("title LIKE ?", "%"+*title+"%")
	}
	err := dbCtx.Order("title").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteTrack(ctx context.Context, artistId int, id int) (*Track, error) {
	track, err := utils.FetchModel[Track](ctx, artistId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	count, err := utils.ResourceCountWhere[RoyaltyLineItem](ctx, artistId, "track_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("track has royalty line items and cannot be deleted")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(track).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artistId, track.ID, EventRefTrack, EventActionDelete, track)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// trackResolver adapts the track table to the import pipeline. The whole
// import already runs under the artist's redislock, so a plain
// find-or-create inside a transaction is race-free here.
type trackResolver struct {
	db *gorm.DB
}

func (r *trackResolver) FindOrCreateTrack(ctx context.Context, artistId int, row royalty.CsvImportRow) (int, error) {
	title := strings.TrimSpace(row.Title)

	var track Track
	err := r.db.WithContext(ctx).
		Where("artist_id = ? AND LOWER(title) = LOWER(?)", artistId, title).
		First(&track).Error
	if err == nil {
		// Backfill catalog fields from the file, never overwrite with blanks.
		updates := map[string]interface{}{}
		if track.Composer == "" && row.Composer != "" {
			updates["composer"] = row.Composer
		}
		if track.Code == "" && row.Code != "" {
			updates["code"] = row.Code
		}
		if track.Split.IsZero() && !row.Split.IsZero() {
			updates["split"] = row.Split
		}
		if len(updates) > 0 {
			if err := r.db.WithContext(ctx).Model(&track).Updates(updates).Error; err != nil {
				return 0, err
			}
		}
		return track.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	track = Track{
		ArtistId: artistId,
		Title:    title,
		Composer: row.Composer,
		Code:     row.Code,
		Split:    row.Split,
	}
	if err := r.db.WithContext(ctx).Create(&track).Error; err != nil {
		return 0, err
	}
	return track.ID, nil
}
