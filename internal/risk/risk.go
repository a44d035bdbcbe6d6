// Package risk derives a supply-chain risk rating for a vendor from its
// country of operation against a configurable high-risk list.
package risk

import (
	"strings"

	"compliance-service/internal/model"
)

// DefaultHighRiskCountries is the built-in high-risk-country list used when
// no override is configured.
var DefaultHighRiskCountries = []string{
	"China",
	"North Korea",
	"Myanmar",
	"Uzbekistan",
	"Turkmenistan",
	"Eritrea",
	"Belarus",
	"Afghanistan",
	"Pakistan",
	"Bangladesh",
}

// Classifier rates vendor countries against a high-risk list.
type Classifier struct {
	highRisk []string
}

// NewClassifier builds a Classifier. An empty list falls back to the
// built-in default.
func NewClassifier(highRisk []string) *Classifier {
	if len(highRisk) == 0 {
		highRisk = DefaultHighRiskCountries
	}
	return &Classifier{highRisk: highRisk}
}

// Classify returns RiskHigh when the country matches an entry on the
// high-risk list, RiskLow otherwise. Matching is case-insensitive and
// tolerates embellished values like "China (mainland)".
func (c *Classifier) Classify(country string) string {
	normalized := strings.ToLower(strings.TrimSpace(country))
	if normalized == "" {
		return model.RiskLow
	}
	for _, entry := range c.highRisk {
		if strings.Contains(normalized, strings.ToLower(entry)) {
			return model.RiskHigh
		}
	}
	return model.RiskLow
}
