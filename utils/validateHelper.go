package utils

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
)

var validate = validator.New()

// ValidateStruct re-checks `validate:` tags on ingest payloads. gin's binding
// covers the HTTP path; this covers Pub/Sub and CLI entry points too.
func ValidateStruct(obj interface{}) error {
	return validate.Struct(obj)
}

// check if id exists, using businessId in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, businessId string, id interface{}) error {
	db := config.GetDB()
	var count int64
	var model T
	err := db.WithContext(ctx).Model(&model).
		Where("business_id = ?", businessId).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
