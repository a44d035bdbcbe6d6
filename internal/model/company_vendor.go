package model

import (
	"time"

	"gorm.io/gorm"
)

// Risk status values derived once at link time
const (
	RiskLow  = "LOW"
	RiskHigh = "HIGH"
)

// Verification status values. The status only ever advances
// PENDING -> SENT -> VERIFIED; no code path regresses it.
const (
	VerificationPending  = "PENDING"
	VerificationSent     = "SENT"
	VerificationVerified = "VERIFIED"
)

var verificationRank = map[string]int{
	VerificationPending:  0,
	VerificationSent:     1,
	VerificationVerified: 2,
}

// VerificationAdvances reports whether moving from current to next is a
// forward transition. Equal or backward moves return false.
func VerificationAdvances(current, next string) bool {
	cr, ok := verificationRank[current]
	if !ok {
		return false
	}
	nr, ok := verificationRank[next]
	if !ok {
		return false
	}
	return nr > cr
}

// CompanyVendor links a Vendor into a company's reporting cycle. One vendor
// may appear in multiple cycles.
type CompanyVendor struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	CycleID            uint           `json:"cycle_id" gorm:"index;not null"`
	VendorID           uint           `json:"vendor_id" gorm:"index;not null"`
	RiskStatus         string         `json:"risk_status" gorm:"type:varchar(10);default:'LOW'"`
	VerificationStatus string         `json:"verification_status" gorm:"type:varchar(10);default:'PENDING'"`
	AIRiskSummary      string         `json:"ai_risk_summary" gorm:"type:text"`
	RemediationPlan    string         `json:"remediation_plan" gorm:"type:text"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Cycle  ReportingCycle `json:"-" gorm:"foreignKey:CycleID"`
	Vendor Vendor         `json:"vendor" gorm:"foreignKey:VendorID"`
}
