// Package scan fetches a website and heuristically classifies the
// compliance markers the instant audit looks for.
package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"compliance-service/internal/model"
	"compliance-service/pkg/config"
)

var (
	privacyPolicyRe = regexp.MustCompile(`(?i)(privacy[\s-]?policy|politique\s+de\s+confidentialit)`)
	cookieBannerRe  = regexp.MustCompile(`(?i)(cookie[\s-]?(consent|banner|notice)|accept\s+(all\s+)?cookies|t[ée]moins de navigation|gestion des cookies)`)
	langAttrRe      = regexp.MustCompile(`(?i)<html[^>]*\slang\s*=\s*["']?([a-zA-Z-]+)`)
)

// Scanner fetches pages and classifies them.
type Scanner struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

// NewScanner builds a Scanner from configuration.
func NewScanner(cfg *config.ScanConfig) *Scanner {
	return &Scanner{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Scan fetches url and returns the heuristic classification. Fetch
// failures are upstream errors and surface as an error, never a panic.
func (s *Scanner) Scan(ctx context.Context, targetURL string) (model.ScanResults, error) {
	var results model.ScanResults

	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		targetURL = "https://" + targetURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return results, fmt.Errorf("building scan request: %w", err)
	}
	req.Header.Set("User-Agent", "ComplianceScanner/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return results, fmt.Errorf("fetching %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return results, fmt.Errorf("fetching %s: HTTP %d", targetURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return results, fmt.Errorf("reading %s: %w", targetURL, err)
	}

	return Classify(string(body)), nil
}

// Classify runs the marker heuristics over raw HTML.
func Classify(html string) model.ScanResults {
	results := model.ScanResults{
		HasPrivacyPolicy: privacyPolicyRe.MatchString(html),
		HasCookieBanner:  cookieBannerRe.MatchString(html),
	}
	if m := langAttrRe.FindStringSubmatch(html); m != nil {
		results.HasLangAttribute = true
		results.DetectedLang = strings.ToLower(m[1])
	}
	return results
}
