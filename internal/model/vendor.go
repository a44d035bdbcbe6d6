package model

import (
	"time"
)

// Vendor is a global supplier identity. Vendors are created on CSV import
// or manual add and are never deleted by this subsystem, only unlinked
// from a reporting cycle.
type Vendor struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CompanyName  string    `json:"company_name" gorm:"type:varchar(200);index;not null"`
	ContactEmail string    `json:"contact_email" gorm:"type:varchar(100);not null"`
	Country      string    `json:"country" gorm:"type:varchar(100)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
