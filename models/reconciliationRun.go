package models

import "time"

// ReconciliationRun is the append-only audit trail of pipeline runs. One row
// per completed run; never updated.
type ReconciliationRun struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"size:64;index;not null" json:"business_id"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	SnapshotHash  string    `gorm:"size:64" json:"snapshot_hash"`
	RecordCount   int       `gorm:"not null" json:"record_count"`
	Matched       int       `gorm:"not null" json:"matched"`
	Partial       int       `gorm:"not null" json:"partial"`
	MissingData   int       `gorm:"not null" json:"missing_data"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
