package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice records a settled payment: one invoice per paid request.
type Invoice struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InvoiceNumber    string          `gorm:"size:50;uniqueIndex" json:"invoice_number"`
	ArtistId         int             `gorm:"not null;index" json:"artist_id"`
	Artist           *Artist         `gorm:"foreignKey:ArtistId" json:"artist,omitempty"`
	PaymentRequestId int             `gorm:"not null;index" json:"payment_request_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	IssuedAt         time.Time       `gorm:"not null" json:"issued_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// createInvoiceForRequest runs inside the payment settlement transaction so
// the invoice and the status flip commit together.
func createInvoiceForRequest(ctx context.Context, tx *gorm.DB, request *PaymentRequest) (*Invoice, error) {
	invoice := Invoice{
		ArtistId:         request.ArtistId,
		PaymentRequestId: request.ID,
		Amount:           request.Amount,
		IssuedAt:         time.Now().UTC(),
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}

	invoice.InvoiceNumber = fmt.Sprintf("INV-%06d", invoice.ID)
	if err := tx.Model(&invoice).Update("invoice_number", invoice.InvoiceNumber).Error; err != nil {
		return nil, err
	}

	if err := PublishEvent(ctx, tx, request.ArtistId, invoice.ID, EventRefInvoice, EventActionCreate, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoice fetches one invoice; artistId 0 skips the artist scope.
func GetInvoice(ctx context.Context, artistId int, id int) (*Invoice, error) {
	if artistId == 0 {
		return utils.FetchSingleModel[Invoice](ctx, id, "Artist")
	}
	return utils.FetchModel[Invoice](ctx, artistId, id, "Artist")
}

// GetInvoices lists invoices newest first; artistId 0 lists all.
func GetInvoices(ctx context.Context, artistId int) ([]*Invoice, error) {
	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx).Preload("Artist")
	if artistId > 0 {
		dbCtx = dbCtx.Where("artist_id = ?", artistId)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
