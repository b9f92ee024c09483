package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/models"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"github.com/sirupsen/logrus"
)

const resultCacheTTL = 10 * time.Minute

// Result is one complete pipeline output. The result buffer is only ever
// replaced wholesale with a value of this type; no incremental mutation.
type Result struct {
	Records       []Record  `json:"records"`
	Stats         Summary   `json:"stats"`
	CorrelationId string    `json:"correlation_id"`
	GeneratedAt   time.Time `json:"generated_at"`
}

func resultCacheKey(businessId string) string {
	return "recon:latest:" + businessId
}

// RunReconciliation executes the full pipeline for the business in ctx:
// fetch snapshot, reconcile every order, summarize, append the audit-trail
// row and cache the result. A cancelled ctx abandons the run without touching
// the audit trail or cache.
func RunReconciliation(ctx context.Context) (*Result, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	cid, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || cid == "" {
		cid = uuid.NewString()
	}

	snap, err := FetchSnapshot(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := ReconcileSnapshot(snap, PlaceholderRate)
	stats := Summarize(records)

	result := &Result{
		Records:       records,
		Stats:         stats,
		CorrelationId: cid,
		GeneratedAt:   time.Now().UTC(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := models.ReconciliationRun{
		BusinessId:    businessId,
		CorrelationId: cid,
		SnapshotHash:  SnapshotHash(snap),
		RecordCount:   stats.Total,
		Matched:       stats.Matched,
		Partial:       stats.Partial,
		MissingData:   stats.MissingData,
	}
	if err := config.GetDB().WithContext(ctx).Create(&run).Error; err != nil {
		// The verdicts are still good; losing one audit row is survivable.
		config.LogError(logger, "run.go", "RunReconciliation", "Creating ReconciliationRun", businessId, err)
	}

	if err := config.SetRedisObject(resultCacheKey(businessId), result, resultCacheTTL); err != nil {
		config.LogError(logger, "run.go", "RunReconciliation", "Caching result", businessId, err)
	}

	logger.WithFields(logrus.Fields{
		"field":          "Reconciliation",
		"business_id":    businessId,
		"correlation_id": cid,
		"total":          stats.Total,
		"matched":        stats.Matched,
		"partial":        stats.Partial,
		"missing_data":   stats.MissingData,
		"audit_ready":    stats.AuditReadyCount,
	}).Info("reconciliation run completed")

	return result, nil
}

// CachedResult returns the last cached pipeline output, if Redis has one.
func CachedResult(businessId string) (*Result, bool) {
	var result Result
	found, err := config.GetRedisObject(resultCacheKey(businessId), &result)
	if err != nil || !found {
		return nil, false
	}
	return &result, true
}
