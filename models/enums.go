package models

import "errors"

type ValidationStatus string

const (
	ValidationStatusPending  ValidationStatus = "pending"
	ValidationStatusAccepted ValidationStatus = "accepted"
	ValidationStatusRejected ValidationStatus = "rejected"
)

func (s *ValidationStatus) UnmarshalText(b []byte) error {
	switch ValidationStatus(b) {
	case ValidationStatusPending, ValidationStatusAccepted, ValidationStatusRejected:
		*s = ValidationStatus(b)
		return nil
	}
	return errors.New("invalid validation status")
}

type DispatchStatus string

const (
	DispatchStatusScheduled  DispatchStatus = "scheduled"
	DispatchStatusInProgress DispatchStatus = "in_progress"
	DispatchStatusCompleted  DispatchStatus = "completed"
	DispatchStatusCancelled  DispatchStatus = "cancelled"
)

func (s *DispatchStatus) UnmarshalText(b []byte) error {
	switch DispatchStatus(b) {
	case DispatchStatusScheduled, DispatchStatusInProgress, DispatchStatusCompleted, DispatchStatusCancelled:
		*s = DispatchStatus(b)
		return nil
	}
	return errors.New("invalid dispatch status")
}

type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "pending"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusFailed    ShipmentStatus = "failed"
)

func (s *ShipmentStatus) UnmarshalText(b []byte) error {
	switch ShipmentStatus(b) {
	case ShipmentStatusPending, ShipmentStatusInTransit, ShipmentStatusDelivered, ShipmentStatusFailed:
		*s = ShipmentStatus(b)
		return nil
	}
	return errors.New("invalid shipment status")
}

type ReconciliationStatus string

const (
	ReconciliationStatusMatched     ReconciliationStatus = "matched"
	ReconciliationStatusPartial     ReconciliationStatus = "partial"
	ReconciliationStatusMissingData ReconciliationStatus = "missing_data"
)

// ChangeReferenceType names the traced collection a change event belongs to.
type ChangeReferenceType string

const (
	ChangeReferenceTypeProcurementOrder     ChangeReferenceType = "PO"
	ChangeReferenceTypeDispatchSchedule     ChangeReferenceType = "DS"
	ChangeReferenceTypeShipment             ChangeReferenceType = "SH"
	ChangeReferenceTypeInvoice              ChangeReferenceType = "IV"
	ChangeReferenceTypeDeliveryConfirmation ChangeReferenceType = "DC"
)

type ChangeAction string

const (
	ChangeActionCreate ChangeAction = "C"
	ChangeActionUpdate ChangeAction = "U"
	ChangeActionDelete ChangeAction = "D"
)
