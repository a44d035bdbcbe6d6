package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"compliance-service/internal/model"
	"compliance-service/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider is a scripted llm.Provider
type fakeProvider struct {
	content string
	deltas  []string
	err     error

	lastRequest *llm.Request
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content, Model: "fake"}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req *llm.Request, onDelta llm.DeltaFunc) error {
	f.lastRequest = req
	if f.err != nil {
		return f.err
	}
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

var _ llm.Provider = (*fakeProvider)(nil)

func seedPremiumAudit(t *testing.T, db *gorm.DB) *model.Audit {
	t.Helper()
	audit := model.Audit{
		Email:   "owner@acme.test",
		URL:     "https://acme.test",
		Premium: true,
		ScanResults: model.ScanResults{
			HasPrivacyPolicy: false,
			HasCookieBanner:  true,
			HasLangAttribute: true,
			DetectedLang:     "en",
		},
	}
	require.NoError(t, db.Create(&audit).Error)
	return &audit
}

func TestGetFix_RequiresPremium(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	audit := model.Audit{Email: "a@b.test", URL: "https://b.test", Premium: false}
	require.NoError(t, db.Create(&audit).Error)

	h := NewAIHandler(db, &fakeProvider{content: "doc"})
	c, rec := newJSONContext(t, http.MethodPost, "/get-ai-fix",
		fmt.Sprintf(`{"audit_id":%d,"language":"en"}`, audit.ID))
	require.NoError(t, h.GetFix(c))
	assertStatus(t, rec, http.StatusOK)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "premium")
}

func TestGetFix_NonStreaming(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	audit := seedPremiumAudit(t, db)

	provider := &fakeProvider{content: "Remediation plan."}
	h := NewAIHandler(db, provider)

	c, rec := newJSONContext(t, http.MethodPost, "/get-ai-fix",
		fmt.Sprintf(`{"audit_id":%d,"language":"fr"}`, audit.ID))
	require.NoError(t, h.GetFix(c))
	assertStatus(t, rec, http.StatusOK)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Remediation plan.", body["document"])

	require.NotNil(t, provider.lastRequest)
	assert.Contains(t, provider.lastRequest.SystemPrompt, "French")
	assert.Contains(t, provider.lastRequest.UserPrompt, "privacy policy")
}

func TestGetFix_StreamingRelaysDeltasInOrder(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	audit := seedPremiumAudit(t, db)

	provider := &fakeProvider{deltas: []string{"Hello", " ", "world"}}
	h := NewAIHandler(db, provider)

	c, rec := newJSONContext(t, http.MethodPost, "/get-ai-fix",
		fmt.Sprintf(`{"audit_id":%d,"language":"en","stream":true}`, audit.ID))
	require.NoError(t, h.GetFix(c))
	assertStatus(t, rec, http.StatusOK)

	assert.Equal(t, "text/event-stream", rec.Header().Get(echoHeaderContentType))

	// Three frames, whose deltas concatenate in order
	var got []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame struct {
			Delta string `json:"delta"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		got = append(got, frame.Delta)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "Hello world", strings.Join(got, ""))
}

func TestGetFix_UpstreamErrorSurfacesInBody(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	audit := seedPremiumAudit(t, db)

	h := NewAIHandler(db, &fakeProvider{err: errors.New("model overloaded")})
	c, rec := newJSONContext(t, http.MethodPost, "/get-ai-fix",
		fmt.Sprintf(`{"audit_id":%d}`, audit.ID))
	require.NoError(t, h.GetFix(c))
	assertStatus(t, rec, http.StatusOK)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "model overloaded")
}

func TestGenerateReport(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	_, companyVendor := seedCompanyVendor(t, db, "Acme Manufacturing", "Northern Textiles", "ops@northern.test")

	provider := &fakeProvider{content: "Annual report body."}
	h := NewAIHandler(db, provider)

	c, rec := newJSONContext(t, http.MethodPost, "/api/generate-ai-report",
		fmt.Sprintf(`{"companyName":"Acme Manufacturing","vendorCount":1,"highRiskCount":0,"verifiedCount":0,"vendorIds":[%d]}`, companyVendor.ID))
	require.NoError(t, h.GenerateReport(c))
	assertStatus(t, rec, http.StatusOK)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Annual report body.", body["reportText"])

	require.NotNil(t, provider.lastRequest)
	assert.Contains(t, provider.lastRequest.UserPrompt, "Northern Textiles")
	assert.Contains(t, provider.lastRequest.SystemPrompt, "S-211")
}

const echoHeaderContentType = "Content-Type"
