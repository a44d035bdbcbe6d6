package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"compliance-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner() *Scanner {
	return NewScanner(&config.ScanConfig{
		FetchTimeout: 5 * time.Second,
		MaxBodyBytes: 2 << 20,
	})
}

func TestClassify(t *testing.T) {
	t.Run("french site with all markers", func(t *testing.T) {
		html := `<html lang="fr-CA"><body>
			<a href="/politique">Politique de confidentialité</a>
			<div id="banner">Gestion des cookies</div>
		</body></html>`
		r := Classify(html)
		assert.True(t, r.HasPrivacyPolicy)
		assert.True(t, r.HasCookieBanner)
		assert.True(t, r.HasLangAttribute)
		assert.Equal(t, "fr-ca", r.DetectedLang)
	})

	t.Run("english site with privacy policy only", func(t *testing.T) {
		html := `<html lang="en"><body><a href="/privacy">Privacy Policy</a></body></html>`
		r := Classify(html)
		assert.True(t, r.HasPrivacyPolicy)
		assert.False(t, r.HasCookieBanner)
		assert.True(t, r.HasLangAttribute)
		assert.Equal(t, "en", r.DetectedLang)
	})

	t.Run("cookie consent wording", func(t *testing.T) {
		r := Classify(`<html><body><button>Accept all cookies</button></body></html>`)
		assert.True(t, r.HasCookieBanner)
		assert.False(t, r.HasLangAttribute)
		assert.Empty(t, r.DetectedLang)
	})

	t.Run("bare page has nothing", func(t *testing.T) {
		r := Classify(`<html><body><h1>Welcome</h1></body></html>`)
		assert.False(t, r.HasPrivacyPolicy)
		assert.False(t, r.HasCookieBanner)
		assert.False(t, r.HasLangAttribute)
	})
}

func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html lang="fr"><body>Politique de confidentialité. Gestion des cookies.</body></html>`))
	}))
	defer srv.Close()

	s := newTestScanner()

	results, err := s.Scan(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, results.HasPrivacyPolicy)
	assert.True(t, results.HasCookieBanner)
	assert.Equal(t, "fr", results.DetectedLang)
}

func TestScan_SchemePrefixed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html lang="en"></html>`)) // reached only with explicit scheme
	}))
	defer srv.Close()

	s := newTestScanner()

	// Bare host gets https:// prefixed, which the plain test server rejects
	bare := strings.TrimPrefix(srv.URL, "http://")
	_, err := s.Scan(context.Background(), bare)
	require.Error(t, err)

	// The explicit http URL works as-is
	results, err := s.Scan(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, results.HasLangAttribute)
}

func TestScan_Unreachable(t *testing.T) {
	s := newTestScanner()

	_, err := s.Scan(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
}

func TestScan_UpstreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestScanner()

	_, err := s.Scan(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestScan_BodyTruncatedAtLimit(t *testing.T) {
	marker := `Politique de confidentialité`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
		w.Write([]byte(marker))
	}))
	defer srv.Close()

	s := NewScanner(&config.ScanConfig{
		FetchTimeout: 5 * time.Second,
		MaxBodyBytes: 1024,
	})

	results, err := s.Scan(context.Background(), srv.URL)
	require.NoError(t, err)
	// Marker sits past the byte limit so it is never seen
	assert.False(t, results.HasPrivacyPolicy)
}
