package models

import (
	"context"
	"errors"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"gorm.io/gorm"
)

// Shipment is one outbound movement of a batch. A batch may be split across
// several shipments; the reconciliation engine picks one explicitly.
type Shipment struct {
	ID            int            `gorm:"primary_key" json:"id"`
	BusinessId    string         `gorm:"size:64;index;not null" json:"business_id"`
	BatchNumber   string         `gorm:"size:100;index;not null" json:"batch_number"`
	CurrentStatus ShipmentStatus `gorm:"type:enum('pending','in_transit','delivered','failed');not null;default:'pending'" json:"current_status"`
	DepartureTime *time.Time     `gorm:"default:null" json:"departure_time"`
	ActualArrival *time.Time     `gorm:"default:null" json:"actual_arrival"`
	Eta           *time.Time     `gorm:"default:null" json:"eta"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShipment struct {
	BatchNumber   string         `json:"batch_number" binding:"required" validate:"required"`
	CurrentStatus ShipmentStatus `json:"current_status" binding:"omitempty,oneof=pending in_transit delivered failed"`
	DepartureTime *time.Time     `json:"departure_time"`
	ActualArrival *time.Time     `json:"actual_arrival"`
	Eta           *time.Time     `json:"eta"`
}

func CreateShipment(ctx context.Context, input *NewShipment) (*Shipment, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	status := input.CurrentStatus
	if status == "" {
		status = ShipmentStatusPending
	}

	shipment := Shipment{
		BusinessId:    businessId,
		BatchNumber:   input.BatchNumber,
		CurrentStatus: status,
		DepartureTime: input.DepartureTime,
		ActualArrival: input.ActualArrival,
		Eta:           input.Eta,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shipment).Error; err != nil {
			return err
		}
		return PublishChangeEvent(ctx, tx, businessId, shipment.ID, ChangeReferenceTypeShipment, ChangeActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func GetShipments(ctx context.Context, businessId string) ([]Shipment, error) {
	db := config.GetDB()
	var shipments []Shipment
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}
