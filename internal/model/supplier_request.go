package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request status values for the vendor portal lifecycle
const (
	RequestPending   = "PENDING"
	RequestViewed    = "VIEWED"
	RequestSubmitted = "SUBMITTED"
)

// EvidenceFile references a document a vendor uploaded as proof of
// compliance, by storage path.
type EvidenceFile struct {
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SupplierRequest is one dispatched compliance email. The magic token is
// the sole authentication credential for the externally-facing portal:
// unguessable, unique, never reused across requests. Rows are never
// deleted; re-sends create new requests.
type SupplierRequest struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	CompanyVendorID uint           `json:"company_vendor_id" gorm:"index;not null"`
	MagicToken      string         `json:"magic_token" gorm:"type:varchar(36);uniqueIndex;not null"`
	Status          string         `json:"status" gorm:"type:varchar(10);default:'PENDING'"`
	EvidenceFiles   []EvidenceFile `json:"evidence_files" gorm:"serializer:json"`
	SubmittedAt     *time.Time     `json:"submitted_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	CompanyVendor CompanyVendor `json:"-" gorm:"foreignKey:CompanyVendorID"`
}

// BeforeCreate fills in the magic token so every row gets a fresh
// unguessable credential without callers having to think about it.
func (r *SupplierRequest) BeforeCreate(tx *gorm.DB) error {
	if r.MagicToken == "" {
		r.MagicToken = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	return nil
}
