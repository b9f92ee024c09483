package models

import (
	"context"
	"errors"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"gorm.io/gorm"
)

// DispatchSchedule links an accepted procurement order to a physical batch
// queued for outbound shipment. One dispatch per order in the common case.
type DispatchSchedule struct {
	ID            int            `gorm:"primary_key" json:"id"`
	BusinessId    string         `gorm:"size:64;index;not null" json:"business_id"`
	OrderId       int            `gorm:"index;not null" json:"order_id"`
	BatchNumber   string         `gorm:"size:100;index;not null" json:"batch_number"`
	CurrentStatus DispatchStatus `gorm:"type:enum('scheduled','in_progress','completed','cancelled');not null;default:'scheduled'" json:"current_status"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDispatchSchedule struct {
	OrderId       int            `json:"order_id" binding:"required" validate:"required"`
	BatchNumber   string         `json:"batch_number" binding:"required" validate:"required"`
	CurrentStatus DispatchStatus `json:"current_status" binding:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

func CreateDispatchSchedule(ctx context.Context, input *NewDispatchSchedule) (*DispatchSchedule, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[ProcurementOrder](ctx, businessId, input.OrderId); err != nil {
		return nil, err
	}

	status := input.CurrentStatus
	if status == "" {
		status = DispatchStatusScheduled
	}

	dispatch := DispatchSchedule{
		BusinessId:    businessId,
		OrderId:       input.OrderId,
		BatchNumber:   input.BatchNumber,
		CurrentStatus: status,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dispatch).Error; err != nil {
			return err
		}
		return PublishChangeEvent(ctx, tx, businessId, dispatch.ID, ChangeReferenceTypeDispatchSchedule, ChangeActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return &dispatch, nil
}

func GetDispatchSchedules(ctx context.Context, businessId string) ([]DispatchSchedule, error) {
	db := config.GetDB()
	var dispatches []DispatchSchedule
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&dispatches).Error
	if err != nil {
		return nil, err
	}
	return dispatches, nil
}
