package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a dashboard account. CompanyID stays nil until the user
// completes onboarding or accepts a team invitation.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"type:varchar(200);not null"`
	CompanyID    *uint          `json:"company_id" gorm:"index"`
	Premium      bool           `json:"premium" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
