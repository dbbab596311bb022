package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRequest struct {
	ID        int                  `gorm:"primary_key" json:"id"`
	ArtistId  int                  `gorm:"not null;index" json:"artist_id"`
	Artist    *Artist              `gorm:"foreignKey:ArtistId" json:"artist,omitempty"`
	Amount    decimal.Decimal      `gorm:"type:decimal(20,8);not null" json:"amount"`
	Status    PaymentRequestStatus `gorm:"type:enum('PENDING','APPROVED','DECLINED','PAID');not null;default:'PENDING';index" json:"status"`
	Note      string               `gorm:"type:text" json:"note"`
	DecidedBy string               `gorm:"size:100" json:"decided_by"`
	DecidedAt *time.Time           `json:"decided_at"`
	PaidAt    *time.Time           `json:"paid_at"`
	InvoiceId *int                 `gorm:"index" json:"invoice_id"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaymentRequest struct {
	Amount string `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

// GetArtistBalance computes the artist's money position from stored line
// items and the request ledger. Open requests (pending or approved but not
// yet paid) reserve their amount.
func GetArtistBalance(ctx context.Context, artistId int) (*royalty.Balance, error) {
	items, err := GetArtistLineItems(ctx, artistId)
	if err != nil {
		return nil, err
	}
	totalNet := royalty.TotalNet(items)

	paid, err := sumRequestAmounts(ctx, artistId, []PaymentRequestStatus{PaymentRequestStatusPaid})
	if err != nil {
		return nil, err
	}
	pending, err := sumRequestAmounts(ctx, artistId, []PaymentRequestStatus{PaymentRequestStatusPending, PaymentRequestStatusApproved})
	if err != nil {
		return nil, err
	}

	balance := royalty.ComputeBalance(totalNet, paid, pending)
	return &balance, nil
}

func sumRequestAmounts(ctx context.Context, artistId int, statuses []PaymentRequestStatus) (decimal.Decimal, error) {
	db := config.GetDB()
	var requests []PaymentRequest
	err := db.WithContext(ctx).
		Where("artist_id = ? AND status IN ?", artistId, statuses).
		Find(&requests).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range requests {
		total = total.Add(r.Amount)
	}
	return total, nil
}

// CreatePaymentRequest applies the withdrawal gates server side: minimum
// amount, no second open request, never more than the available balance.
// The artist lock plus the transaction make the gate and the insert atomic.
func CreatePaymentRequest(ctx context.Context, artistId int, input *NewPaymentRequest) (*PaymentRequest, error) {

	if _, err := GetArtist(ctx, artistId); err != nil {
		return nil, err
	}

	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, &royalty.Error{
			Code:    royalty.CodeInvalidAmount,
			Message: "requested amount is not a valid number",
			Detail:  input.Amount,
		}
	}

	lock, err := utils.ArtistLock(ctx, artistId, "payment", "models", "CreatePaymentRequest")
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.Background())

	balance, err := GetArtistBalance(ctx, artistId)
	if err != nil {
		return nil, err
	}

	pendingCount, err := utils.ResourceCountWhere[PaymentRequest](ctx, artistId, "status = ?", PaymentRequestStatusPending)
	if err != nil {
		return nil, err
	}

	if gateErr := royalty.ValidateWithdrawal(*balance, amount, pendingCount > 0); gateErr != nil {
		return nil, gateErr
	}

	request := PaymentRequest{
		ArtistId: artistId,
		Amount:   amount,
		Status:   PaymentRequestStatusPending,
		Note:     input.Note,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, artistId, request.ID, EventRefPaymentRequest, EventActionCreate, &request)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func GetPaymentRequest(ctx context.Context, artistId int, id int) (*PaymentRequest, error) {
	return utils.FetchModel[PaymentRequest](ctx, artistId, id, "Artist")
}

// GetPaymentRequests lists requests, newest first. artistId 0 lists across
// all artists (admin view); status nil lists every status.
func GetPaymentRequests(ctx context.Context, artistId int, status *PaymentRequestStatus) ([]*PaymentRequest, error) {
	db := config.GetDB()
	var results []*PaymentRequest

	dbCtx := db.WithContext(ctx).Preload("Artist")
	if artistId > 0 {
		dbCtx = dbCtx.Where("artist_id = ?", artistId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// requestActor is the audit name stamped on decisions: the operator's
// display name when the session carries one, their username otherwise.
func requestActor(ctx context.Context) string {
	if name, ok := utils.GetUserNameFromContext(ctx); ok && name != "" {
		return name
	}
	username, _ := utils.GetUsernameFromContext(ctx)
	return username
}

// transitionPaymentRequest moves a request along its lifecycle, guarding
// against invalid jumps.
func transitionPaymentRequest(ctx context.Context, id int, from []PaymentRequestStatus, to PaymentRequestStatus, extra map[string]interface{}) (*PaymentRequest, error) {
	request, err := utils.FetchSingleModel[PaymentRequest](ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range from {
		if request.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("payment request is %s and cannot move to %s", request.Status, to)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     to,
		"decided_by": requestActor(ctx),
		"decided_at": &now,
	}
	for k, v := range extra {
		updates[k] = v
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(request).Updates(updates).Error; err != nil {
			return err
		}
		return PublishEvent(ctx, tx, request.ArtistId, request.ID, EventRefPaymentRequest, EventActionUpdate, request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func ApprovePaymentRequest(ctx context.Context, id int) (*PaymentRequest, error) {
	return transitionPaymentRequest(ctx, id,
		[]PaymentRequestStatus{PaymentRequestStatusPending},
		PaymentRequestStatusApproved, nil)
}

func DeclinePaymentRequest(ctx context.Context, id int, reason string) (*PaymentRequest, error) {
	updates := map[string]interface{}{}
	if reason != "" {
		updates["note"] = reason
	}
	return transitionPaymentRequest(ctx, id,
		[]PaymentRequestStatus{PaymentRequestStatusPending},
		PaymentRequestStatusDeclined, updates)
}

// MarkPaymentRequestPaid settles an approved request and generates its
// invoice in the same transaction.
func MarkPaymentRequestPaid(ctx context.Context, id int) (*PaymentRequest, error) {
	request, err := utils.FetchSingleModel[PaymentRequest](ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != PaymentRequestStatusApproved {
		return nil, errors.New("only approved requests can be marked paid")
	}

	now := time.Now().UTC()
	decidedBy := requestActor(ctx)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := createInvoiceForRequest(ctx, tx, request)
		if err != nil {
			return err
		}
		err = tx.Model(request).Updates(map[string]interface{}{
			"status":     PaymentRequestStatusPaid,
			"paid_at":    &now,
			"decided_by": decidedBy,
			"decided_at": &now,
			"invoice_id": invoice.ID,
		}).Error
		if err != nil {
			return err
		}
		return PublishEvent(ctx, tx, request.ArtistId, request.ID, EventRefPaymentRequest, EventActionUpdate, request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}
