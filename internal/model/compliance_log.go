package model

import (
	"time"
)

// Audit trail action types
const (
	ActionRequestSent     = "REQUEST_SENT"
	ActionVendorSubmitted = "VENDOR_SUBMITTED"
)

// ComplianceLog is an append-only audit trail row. Write-once, read-many.
type ComplianceLog struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	CompanyVendorID uint      `json:"company_vendor_id" gorm:"index;not null"`
	ActionType      string    `json:"action_type" gorm:"type:varchar(50);not null"`
	Details         string    `json:"details" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
}
