package model

import (
	"time"
)

// ScanResults holds the heuristic classification of a scanned website.
type ScanResults struct {
	HasPrivacyPolicy bool   `json:"has_privacy_policy"`
	HasCookieBanner  bool   `json:"has_cookie_banner"`
	HasLangAttribute bool   `json:"has_lang_attribute"`
	DetectedLang     string `json:"detected_lang,omitempty"`
}

// Audit is one website compliance audit. Created anonymously by the
// instant scan and linked to a user when the account is claimed.
type Audit struct {
	ID            uint                   `json:"id" gorm:"primaryKey"`
	Email         string                 `json:"email" gorm:"type:varchar(100);index;not null"`
	URL           string                 `json:"url" gorm:"type:varchar(500);not null"`
	ScanResults   ScanResults            `json:"scan_results" gorm:"serializer:json"`
	ChecklistData map[string]interface{} `json:"checklist_data" gorm:"serializer:json"`
	Premium       bool                   `json:"premium" gorm:"default:false"`
	UserID        *uint                  `json:"user_id" gorm:"index"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
