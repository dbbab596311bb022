package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord is the transactional outbox row for portal domain events.
// It is written inside the caller's DB transaction; publishing to Pub/Sub
// happens after commit, by the dispatcher.
type EventRecord struct {
	ID            int                `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	ArtistId      int                `gorm:"index;not null" json:"artist_id"`
	OccurredAt    time.Time          `gorm:"index;not null" json:"occurred_at"`
	ReferenceId   int                `json:"reference_id"`
	ReferenceType EventReferenceType `gorm:"type:enum('AR','TR','RI','PR','IN')" json:"reference_type"`
	Action        EventAction        `gorm:"type:enum('C','U','D')" json:"action"`
	Payload       []byte             `gorm:"type:blob" json:"payload"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishEvent appends an event to the outbox inside the caller's
// transaction. Passing the tx keeps the event atomic with the state change
// it describes; nothing is sent to Pub/Sub here.
func PublishEvent(ctx context.Context, tx *gorm.DB, artistId int, refId int, refType EventReferenceType, action EventAction, obj interface{}) error {
	var payload []byte
	var err error
	if obj != nil {
		payload, err = json.Marshal(obj)
		if err != nil {
			return err
		}
	}

	record := EventRecord{
		ArtistId:      artistId,
		OccurredAt:    time.Now().UTC(),
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ConvertToPortalEvent maps an outbox row to its wire payload.
func ConvertToPortalEvent(record EventRecord) config.PortalEvent {
	return config.PortalEvent{
		ID:            record.ID,
		ArtistId:      record.ArtistId,
		OccurredAt:    record.OccurredAt,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// ReplayDeadEvents requeues DEAD outbox rows, optionally filtered to one
// artist. Returns how many rows were requeued.
func ReplayDeadEvents(ctx context.Context, artistId int) (int64, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&EventRecord{}).
		Where("publish_status = ?", OutboxPublishStatusDead)
	if artistId > 0 {
		dbCtx = dbCtx.Where("artist_id = ?", artistId)
	}
	result := dbCtx.Updates(map[string]interface{}{
		"publish_status":     OutboxPublishStatusPending,
		"next_attempt_at":    nil,
		"publish_attempts":   0,
		"last_publish_error": nil,
	})
	return result.RowsAffected, result.Error
}

// OutboxStatusCounts summarizes the outbox by publish status.
func OutboxStatusCounts(ctx context.Context) (map[string]int64, error) {
	db := config.GetDB()
	type row struct {
		PublishStatus string
		Total         int64
	}
	var rows []row
	err := db.WithContext(ctx).Model(&EventRecord{}).
		Select("publish_status, COUNT(*) AS total").
		Group("publish_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PublishStatus] = r.Total
	}
	return counts, nil
}
