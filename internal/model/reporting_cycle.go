package model

import (
	"time"
)

// ReportingCycle is the yearly container scoping which vendors belong
// together for one annual disclosure.
type ReportingCycle struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CompanyID uint      `json:"company_id" gorm:"index;not null"`
	Year      int       `json:"year" gorm:"not null"`
	Label     string    `json:"label" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company Company `json:"-" gorm:"foreignKey:CompanyID"`
}
