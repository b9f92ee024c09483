package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/models"
)

// Snapshot is one consistent read of the five traced collections. The engine
// only ever works on a snapshot; it never reads the store directly.
type Snapshot struct {
	Orders     []models.ProcurementOrder     `json:"orders"`
	Dispatches []models.DispatchSchedule     `json:"dispatches"`
	Shipments  []models.Shipment             `json:"shipments"`
	Invoices   []models.Invoice              `json:"invoices"`
	Deliveries []models.DeliveryConfirmation `json:"deliveries"`
}

// FetchSnapshot issues the five reads. Any failure aborts the whole snapshot;
// there is no partial-success mode.
func FetchSnapshot(ctx context.Context, businessId string) (*Snapshot, error) {
	logger := config.GetLogger()
	snap := &Snapshot{}

	var err error
	if snap.Orders, err = models.GetProcurementOrders(ctx, businessId); err != nil {
		config.LogError(logger, "snapshot.go", "FetchSnapshot", "Querying procurement orders", businessId, err)
		return nil, fmt.Errorf("fetch reconciliation snapshot: %w", err)
	}
	if snap.Dispatches, err = models.GetDispatchSchedules(ctx, businessId); err != nil {
		config.LogError(logger, "snapshot.go", "FetchSnapshot", "Querying dispatch schedules", businessId, err)
		return nil, fmt.Errorf("fetch reconciliation snapshot: %w", err)
	}
	if snap.Shipments, err = models.GetShipments(ctx, businessId); err != nil {
		config.LogError(logger, "snapshot.go", "FetchSnapshot", "Querying shipments", businessId, err)
		return nil, fmt.Errorf("fetch reconciliation snapshot: %w", err)
	}
	if snap.Invoices, err = models.GetInvoices(ctx, businessId); err != nil {
		config.LogError(logger, "snapshot.go", "FetchSnapshot", "Querying invoices", businessId, err)
		return nil, fmt.Errorf("fetch reconciliation snapshot: %w", err)
	}
	if snap.Deliveries, err = models.GetDeliveryConfirmations(ctx, businessId); err != nil {
		config.LogError(logger, "snapshot.go", "FetchSnapshot", "Querying delivery confirmations", businessId, err)
		return nil, fmt.Errorf("fetch reconciliation snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotHash fingerprints the snapshot for the run audit trail. Two runs
// over identical data share a hash, which is what makes drift between runs
// diagnosable after the fact.
func SnapshotHash(snap *Snapshot) string {
	raw, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
