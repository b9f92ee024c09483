package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/appctx"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/models"
	"github.com/rajendraambati/leaf-trace-ai-sub002/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDispatcher publishes pending change-event records after commit.
// When Pub/Sub is not configured (local/dev), it falls back to notifying the
// in-process reconciliation service directly so change-driven refresh still
// works without cloud infrastructure.
type OutboxDispatcher struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Service     *workflow.Service
	WorkerID    string
	BatchSize   int
	Interval    time.Duration
	LockTTL     time.Duration
	MaxAttempts int
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger, service *workflow.Service) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:          db,
		Logger:      logger,
		Service:     service,
		WorkerID:    "dispatch-" + time.Now().Format("20060102-150405.000"),
		BatchSize:   50,
		Interval:    2 * time.Second,
		LockTTL:     30 * time.Second,
		MaxAttempts: 10,
	}
}

func pubSubConfigured() bool {
	return strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")) != "" &&
		(os.Getenv("PUBSUB_PROJECT_ID") != "" || os.Getenv("GOOGLE_CLOUD_PROJECT") != "" || os.Getenv("GCP_PROJECT") != "")
}

func (p *OutboxDispatcher) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// The dispatcher drains the outbox across all businesses.
	ctx = appctx.Set(ctx, appctx.ContextKeySkipTenantScope, true)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *OutboxDispatcher) processOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-p.LockTTL)

	var claimed []models.ChangeEventRecord
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("publish_status IN ?", []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("id ASC").
			Limit(p.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if err := tx.Model(&models.ChangeEventRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": &now,
					"locked_by": p.WorkerID,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "outboxDispatcher.go", "processOnce", "Claiming outbox records", nil, err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		p.dispatch(ctx, rec)
	}
}

func (p *OutboxDispatcher) dispatch(ctx context.Context, rec models.ChangeEventRecord) {
	msg := models.ConvertToChangeEventMessage(rec)

	var (
		msgId string
		err   error
	)
	if pubSubConfigured() && !config.DirectChangeDispatch() {
		pubCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		msgId, err = config.PublishChangeEventWithResult(pubCtx, msg)
		cancel()
	} else if p.Service != nil {
		// No bus, or direct mode: notify the in-process service.
		p.Service.NotifyChange(rec.BusinessId)
	}

	now := time.Now().UTC()
	if err != nil {
		attempts := rec.PublishAttempts + 1
		status := models.OutboxPublishStatusFailed
		if attempts >= p.MaxAttempts {
			status = models.OutboxPublishStatusDead
		}
		backoff := time.Duration(1<<min(attempts, 6)) * time.Second
		nextAttempt := now.Add(backoff)
		errMsg := err.Error()
		updateErr := p.DB.WithContext(ctx).Model(&models.ChangeEventRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"publish_status":     status,
				"publish_attempts":   attempts,
				"next_attempt_at":    &nextAttempt,
				"last_publish_error": &errMsg,
				"locked_at":          nil,
				"locked_by":          nil,
			}).Error
		if updateErr != nil {
			config.LogError(p.Logger, "outboxDispatcher.go", "dispatch", "Marking outbox record failed", rec.ID, updateErr)
		}
		return
	}

	updates := map[string]interface{}{
		"publish_status": models.OutboxPublishStatusSent,
		"published_at":   &now,
		"locked_at":      nil,
		"locked_by":      nil,
	}
	if msgId != "" {
		updates["pub_sub_message_id"] = &msgId
	}
	if err := p.DB.WithContext(ctx).Model(&models.ChangeEventRecord{}).
		Where("id = ?", rec.ID).
		Updates(updates).Error; err != nil {
		config.LogError(p.Logger, "outboxDispatcher.go", "dispatch", "Marking outbox record sent", rec.ID, err)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
