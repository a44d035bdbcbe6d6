package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invitation lets a company bring a teammate onto the dashboard via a
// tokenized join link.
type Invitation struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Token      string     `json:"token" gorm:"type:varchar(36);uniqueIndex;not null"`
	CompanyID  uint       `json:"company_id" gorm:"index;not null"`
	Email      string     `json:"email" gorm:"type:varchar(100);not null"`
	Role       string     `json:"role" gorm:"type:varchar(50);default:'member'"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeCreate assigns the join token.
func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.Token == "" {
		i.Token = uuid.NewString()
	}
	return nil
}
