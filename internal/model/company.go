package model

import (
	"time"

	"gorm.io/gorm"
)

// Company represents a business running compliance reporting cycles
type Company struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(200);not null"`
	ContactEmail string         `json:"contact_email" gorm:"type:varchar(100)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
