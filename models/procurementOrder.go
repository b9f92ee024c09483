package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProcurementOrder is a purchase request for raw leaf, pushed in by the ERP
// integration endpoint. Read-only after creation; the reconciliation engine
// only ever projects it.
type ProcurementOrder struct {
	ID                  int              `gorm:"primary_key" json:"id"`
	BusinessId          string           `gorm:"size:64;index;uniqueIndex:uq_procurement_orders_business_po;not null" json:"business_id"`
	PoNumber            string           `gorm:"size:100;uniqueIndex:uq_procurement_orders_business_po;not null" json:"po_number"`
	ProductType         string           `gorm:"size:100;not null" json:"product_type"`
	QuantityKg          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"quantity_kg"`
	ConfirmedQuantityKg *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"confirmed_quantity_kg"`
	DeliveryDate        *time.Time       `gorm:"default:null" json:"delivery_date"`
	ValidationStatus    ValidationStatus `gorm:"type:enum('pending','accepted','rejected');not null;default:'pending'" json:"validation_status"`
	CreatedAt           time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProcurementOrder struct {
	PoNumber            string           `json:"po_number" binding:"required" validate:"required"`
	ProductType         string           `json:"product_type" binding:"required" validate:"required"`
	QuantityKg          decimal.Decimal  `json:"quantity_kg" binding:"required" validate:"required"`
	ConfirmedQuantityKg *decimal.Decimal `json:"confirmed_quantity_kg"`
	DeliveryDate        *time.Time       `json:"delivery_date"`
	ValidationStatus    ValidationStatus `json:"validation_status" binding:"omitempty,oneof=pending accepted rejected"`
}

func CreateProcurementOrder(ctx context.Context, input *NewProcurementOrder) (*ProcurementOrder, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	status := input.ValidationStatus
	if status == "" {
		status = ValidationStatusPending
	}

	order := ProcurementOrder{
		BusinessId:          businessId,
		PoNumber:            input.PoNumber,
		ProductType:         input.ProductType,
		QuantityKg:          input.QuantityKg,
		ConfirmedQuantityKg: input.ConfirmedQuantityKg,
		DeliveryDate:        input.DeliveryDate,
		ValidationStatus:    status,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return PublishChangeEvent(ctx, tx, businessId, order.ID, ChangeReferenceTypeProcurementOrder, ChangeActionCreate)
	})
	if err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("procurement order %s already exists", input.PoNumber)
		}
		return nil, err
	}
	return &order, nil
}

// GetProcurementOrders returns orders newest first; the reconciliation
// snapshot relies on that ordering.
func GetProcurementOrders(ctx context.Context, businessId string) ([]ProcurementOrder, error) {
	db := config.GetDB()
	var orders []ProcurementOrder
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
