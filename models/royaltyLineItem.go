package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RoyaltyLineItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ArtistId      int             `gorm:"not null;index:idx_line_item_artist_date,priority:1" json:"artist_id"`
	TrackId       int             `gorm:"not null;index" json:"track_id"`
	Track         *Track          `gorm:"foreignKey:TrackId" json:"track,omitempty"`
	Territory     string          `gorm:"size:100" json:"territory"`
	Source        string          `gorm:"size:100" json:"source"`
	UsageCount    int             `gorm:"not null;default:0" json:"usage_count"`
	Gross         decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"gross"`
	AdminPercent  decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"admin_percent"`
	Net           decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"net"`
	BroadcastDate *time.Time      `gorm:"index:idx_line_item_artist_date,priority:2" json:"broadcast_date"`
	ImportId      int             `gorm:"index" json:"import_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// lineItemStore adapts the line item table to the import pipeline.
type lineItemStore struct {
	db       *gorm.DB
	importId int
}

func (s *lineItemStore) InsertLineItems(ctx context.Context, items []royalty.LineItem) error {
	rows := make([]RoyaltyLineItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, RoyaltyLineItem{
			ArtistId:      item.ArtistId,
			TrackId:       item.TrackId,
			Territory:     item.Territory,
			Source:        item.Source,
			UsageCount:    item.UsageCount,
			Gross:         item.Gross,
			AdminPercent:  item.AdminPercent,
			Net:           item.Net,
			BroadcastDate: item.BroadcastDate,
			ImportId:      s.importId,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// GetArtistLineItems loads an artist's full royalty history as core line
// items, ready for grouping and rollups.
func GetArtistLineItems(ctx context.Context, artistId int) ([]royalty.LineItem, error) {
	db := config.GetDB()
	var rows []RoyaltyLineItem
	err := db.WithContext(ctx).
		Preload("Track").
		Where("artist_id = ?", artistId).
		Order("broadcast_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCoreItems(rows), nil
}

// GetArtistQuarterLineItems narrows the history to one quarter. year=0
// returns the dateless (unassigned) items.
func GetArtistQuarterLineItems(ctx context.Context, artistId int, year, quarter int) ([]royalty.LineItem, error) {
	db := config.GetDB()
	var rows []RoyaltyLineItem

	dbCtx := db.WithContext(ctx).Preload("Track").Where("artist_id = ?", artistId)
	if year == 0 {
		dbCtx = dbCtx.Where("broadcast_date IS NULL")
	} else {
		start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, 0)
		dbCtx = dbCtx.Where("broadcast_date >= ? AND broadcast_date < ?", start, end)
	}
	err := dbCtx.Order("broadcast_date, id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCoreItems(rows), nil
}

// GetArtistQuarterBreakdown is the portal's quarter view: exact totals per
// quarter, newest first, dateless items in their own bucket.
func GetArtistQuarterBreakdown(ctx context.Context, artistId int) (*royalty.QuarterBreakdown, error) {
	items, err := GetArtistLineItems(ctx, artistId)
	if err != nil {
		return nil, err
	}
	breakdown := royalty.GroupByQuarter(items)
	return &breakdown, nil
}

// DeleteImportLineItems removes every row of one import, for operator
// rollback of a bad file.
func DeleteImportLineItems(ctx context.Context, artistId int, importId int) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("artist_id = ? AND import_id = ?", artistId, importId).
		Delete(&RoyaltyLineItem{})
	return result.RowsAffected, result.Error
}

func DeleteLineItem(ctx context.Context, artistId int, id int) (*RoyaltyLineItem, error) {
	item, err := utils.FetchModel[RoyaltyLineItem](ctx, artistId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteQuarterLineItems clears one quarter of an artist's history. year=0
// clears the dateless rows.
func DeleteQuarterLineItems(ctx context.Context, artistId int, year, quarter int) (int64, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("artist_id = ?", artistId)
	if year == 0 {
		dbCtx = dbCtx.Where("broadcast_date IS NULL")
	} else {
		start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, 0)
		dbCtx = dbCtx.Where("broadcast_date >= ? AND broadcast_date < ?", start, end)
	}
	result := dbCtx.Delete(&RoyaltyLineItem{})
	return result.RowsAffected, result.Error
}

func DeleteArtistLineItems(ctx context.Context, artistId int) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("artist_id = ?", artistId).
		Delete(&RoyaltyLineItem{})
	return result.RowsAffected, result.Error
}

func toCoreItems(rows []RoyaltyLineItem) []royalty.LineItem {
	items := make([]royalty.LineItem, 0, len(rows))
	for _, row := range rows {
		item := royalty.LineItem{
			TrackId:       row.TrackId,
			ArtistId:      row.ArtistId,
			Territory:     row.Territory,
			Source:        row.Source,
			UsageCount:    row.UsageCount,
			Gross:         row.Gross,
			AdminPercent:  row.AdminPercent,
			Net:           row.Net,
			BroadcastDate: row.BroadcastDate,
		}
		if row.Track != nil {
			item.TrackTitle = row.Track.Title
		}
		items = append(items, item)
	}
	return items
}

// ExportRowsForItems pairs line items with their tracks' catalog fields for
// CSV export.
func ExportRowsForItems(ctx context.Context, artistId int, items []royalty.LineItem) ([]royalty.RoyaltyExportRow, error) {
	tracks, err := GetTracks(ctx, artistId, nil)
	if err != nil {
		return nil, err
	}
	byId := make(map[int]*Track, len(tracks))
	for _, t := range tracks {
		byId[t.ID] = t
	}

	rows := make([]royalty.RoyaltyExportRow, 0, len(items))
	for _, item := range items {
		row := royalty.RoyaltyExportRow{Item: item}
		if t, ok := byId[item.TrackId]; ok {
			row.Code = t.Code
			row.Composer = t.Composer
			if row.Item.TrackTitle == "" {
				row.Item.TrackTitle = t.Title
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
