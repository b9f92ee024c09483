package models

import (
	"log"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&ProcurementOrder{},
		&DispatchSchedule{},
		&Shipment{},
		&Invoice{},
		&DeliveryConfirmation{},
		&ChangeEventRecord{},
		&ReconciliationRun{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
