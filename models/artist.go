package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"gorm.io/gorm"
)

type Artist struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null;index" json:"name" binding:"required"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Notes     string    `gorm:"type:text" json:"notes"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	Tracks    []Track   `gorm:"foreignKey:ArtistId" json:"tracks,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewArtist struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewArtist) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Artist](ctx, 0, id); err != nil {
			return err
		}
	}
	if strings.TrimSpace(input.Name) == "" {
		return errors.New("artist name is required")
	}
	// name must be unique: imports resolve artists by name
	if err := utils.ValidateUnique[Artist](ctx, 0, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateArtist(ctx context.Context, input *NewArtist) (*Artist, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	artist := Artist{
		Name:     strings.TrimSpace(input.Name),
		Email:    input.Email,
		Phone:    input.Phone,
		Notes:    input.Notes,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&artist).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artist.ID, artist.ID, EventRefArtist, EventActionCreate, &artist)
	})
	if err != nil {
		return nil, err
	}

	return &artist, nil
}

func UpdateArtist(ctx context.Context, id int, input *NewArtist) (*Artist, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	artist, err := utils.FetchSingleModel[Artist](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(artist).Updates(map[string]interface{}{
			"Name":  strings.TrimSpace(input.Name),
			"Email": input.Email,
			"Phone": input.Phone,
			"Notes": input.Notes,
		}).Error
		if err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artist.ID, artist.ID, EventRefArtist, EventActionUpdate, artist)
	})
	if err != nil {
		return nil, err
	}

	// stale caches
	_ = utils.RemoveRedis[Artist](id, 0)

	return artist, nil
}

// DeleteArtist deactivates rather than removes: royalty history must
// survive the artist leaving the roster.
func DeleteArtist(ctx context.Context, id int) (*Artist, error) {

	artist, err := utils.FetchSingleModel[Artist](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(artist).Update("is_active", false).Error
		if err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artist.ID, artist.ID, EventRefArtist, EventActionDelete, artist)
	})
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedis[Artist](id, 0)

	return artist, nil
}

func GetArtist(ctx context.Context, id int) (*Artist, error) {
	if cached, err := utils.RetrieveRedis[Artist](id); err == nil && cached != nil {
		return cached, nil
	}
	artist, err := utils.FetchSingleModel[Artist](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[Artist](artist, id)
	return artist, nil
}

func GetArtists(ctx context.Context, name *string, activeOnly bool) ([]*Artist, error) {

	db := config.GetDB()
	var results []*Artist

	dbCtx := db.WithContext(ctx).Model(&Artist{})
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetArtistByName resolves an artist for import by exact (case-insensitive)
// name.
func GetArtistByName(ctx context.Context, name string) (*Artist, error) {
	db := config.GetDB()
	var artist Artist
	err := db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &artist, nil
}
