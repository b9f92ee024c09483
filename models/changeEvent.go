package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"gorm.io/gorm"
)

// Publish statuses for ChangeEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending = "PENDING"
	OutboxPublishStatusSent    = "SENT"
	OutboxPublishStatusFailed  = "FAILED"
	OutboxPublishStatusDead    = "DEAD"
)

// ChangeEventRecord is the transactional outbox row behind every write to a
// traced collection. It is written inside the caller's DB transaction; Pub/Sub
// publishing happens after commit via the outbox dispatcher.
type ChangeEventRecord struct {
	ID               int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BusinessId       string              `gorm:"size:64;not null;index" json:"business_id"`
	OccurredAt       time.Time           `gorm:"index;not null" json:"occurred_at"`
	ReferenceId      int                 `json:"reference_id"`
	ReferenceType    ChangeReferenceType `gorm:"type:enum('PO','DS','SH','IV','DC')" json:"reference_type"`
	Action           ChangeAction        `gorm:"type:enum('C','U','D')" json:"action"`
	PublishStatus    string              `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time          `gorm:"index" json:"published_at"`
	PubSubMessageId  *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishChangeEvent records a change to a traced collection. It writes the
// outbox row inside the caller's DB transaction but does NOT publish to
// Pub/Sub; the dispatcher picks it up after commit.
func PublishChangeEvent(ctx context.Context, tx *gorm.DB, businessId string, refId int, refType ChangeReferenceType, action ChangeAction) error {
	record := ChangeEventRecord{
		BusinessId:    businessId,
		OccurredAt:    time.Now().UTC(),
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
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

// ConvertToChangeEventMessage maps an outbox row to its wire payload.
func ConvertToChangeEventMessage(rec ChangeEventRecord) config.ChangeEventMessage {
	return config.ChangeEventMessage{
		ID:            rec.ID,
		BusinessId:    rec.BusinessId,
		OccurredAt:    rec.OccurredAt,
		ReferenceId:   rec.ReferenceId,
		ReferenceType: string(rec.ReferenceType),
		Action:        string(rec.Action),
		CorrelationId: rec.CorrelationId,
	}
}
