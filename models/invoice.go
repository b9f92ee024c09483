package models

import (
	"context"
	"errors"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the tax document raised against a delivered batch. GST fields
// gate audit readiness: number, tax amount and invoice number must all be set.
type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"size:64;index;not null" json:"business_id"`
	BatchNumber   string          `gorm:"size:100;index;not null" json:"batch_number"`
	InvoiceNumber string          `gorm:"size:100" json:"invoice_number"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	GstNumber     string          `gorm:"size:50" json:"gst_number"`
	GstAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_amount"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	BatchNumber   string          `json:"batch_number" binding:"required" validate:"required"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount" binding:"required" validate:"required"`
	GstNumber     string          `json:"gst_number"`
	GstAmount     decimal.Decimal `json:"gst_amount"`
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	invoice := Invoice{
		BusinessId:    businessId,
		BatchNumber:   input.BatchNumber,
		InvoiceNumber: input.InvoiceNumber,
		Amount:        input.Amount,
		GstNumber:     input.GstNumber,
		GstAmount:     input.GstAmount,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return PublishChangeEvent(ctx, tx, businessId, invoice.ID, ChangeReferenceTypeInvoice, ChangeActionCreate)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func GetInvoices(ctx context.Context, businessId string) ([]Invoice, error) {
	db := config.GetDB()
	var invoices []Invoice
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
