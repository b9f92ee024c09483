package models

import (
	"context"
	"errors"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"gorm.io/gorm"
)

// DeliveryConfirmation is the proof-of-delivery record for one shipment.
// Photo/signature artifacts are stored by reference only; nothing in this
// service ever downloads them.
type DeliveryConfirmation struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"size:64;index;not null" json:"business_id"`
	ShipmentId   int       `gorm:"index;not null" json:"shipment_id"`
	ConfirmedAt  time.Time `gorm:"not null" json:"confirmed_at"`
	PhotoUrl     string    `gorm:"size:500" json:"photo_url"`
	SignatureUrl string    `gorm:"size:500" json:"signature_url"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDeliveryConfirmation struct {
	ShipmentId   int        `json:"shipment_id" binding:"required" validate:"required"`
	ConfirmedAt  *time.Time `json:"confirmed_at"`
	PhotoUrl     string     `json:"photo_url"`
	SignatureUrl string     `json:"signature_url"`
}

func CreateDeliveryConfirmation(ctx context.Context, input *NewDeliveryConfirmation) (*DeliveryConfirmation, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Shipment](ctx, businessId, input.ShipmentId); err != nil {
		return nil, err
	}

	confirmedAt := time.Now().UTC()
	if input.ConfirmedAt != nil {
		confirmedAt = *input.ConfirmedAt
	}

	delivery := DeliveryConfirmation{
		BusinessId:   businessId,
		ShipmentId:   input.ShipmentId,
		ConfirmedAt:  confirmedAt,
		PhotoUrl:     input.PhotoUrl,
		SignatureUrl: input.SignatureUrl,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&delivery).Error; err != nil {
			return err
		}
		return PublishChangeEvent(ctx, tx, businessId, delivery.ID, ChangeReferenceTypeDeliveryConfirmation, ChangeActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func GetDeliveryConfirmations(ctx context.Context, businessId string) ([]DeliveryConfirmation, error) {
	db := config.GetDB()
	var deliveries []DeliveryConfirmation
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
