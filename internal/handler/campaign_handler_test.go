package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"compliance-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedCampaignFixture creates one company with three vendors in one cycle
func seedCampaignFixture(t *testing.T, db *gorm.DB) (*model.Company, []model.CompanyVendor) {
	t.Helper()

	company := model.Company{Name: "Acme Manufacturing", ContactEmail: "owner@acme.test"}
	require.NoError(t, db.Create(&company).Error)
	cycle := model.ReportingCycle{CompanyID: company.ID, Year: 2026}
	require.NoError(t, db.Create(&cycle).Error)

	var links []model.CompanyVendor
	for i, v := range []struct{ name, email string }{
		{"Northern Textiles", "ops@northern.test"},
		{"Pacific Components", "hello@pacific.test"},
		{"Delta Logistics", "contact@delta.test"},
	} {
		vendor := model.Vendor{CompanyName: v.name, ContactEmail: v.email, Country: "Canada"}
		require.NoError(t, db.Create(&vendor).Error)
		link := model.CompanyVendor{
			CycleID:            cycle.ID,
			VendorID:           vendor.ID,
			RiskStatus:         model.RiskLow,
			VerificationStatus: model.VerificationPending,
		}
		require.NoError(t, db.Create(&link).Error, "link %d", i)
		link.Vendor = vendor
		links = append(links, link)
	}
	return &company, links
}

func campaignBody(ids []uint, testMode bool) string {
	idsJSON, _ := json.Marshal(ids)
	return fmt.Sprintf(
		`{"ids":%s,"subject":"Compliance request from {{Client Name}}","body":"<p>Dear {{Company Name}}, please respond by {{Deadline}}: {{Link}}</p>","test_mode":%t}`,
		idsJSON, testMode)
}

func TestCampaignSend_PartialFailureIsolation(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	mail := newFakeMailer()
	mail.failTo["hello@pacific.test"] = true

	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	ids := []uint{links[0].ID, links[1].ID, links[2].ID}
	c, rec := newJSONContext(t, http.MethodPost, "/api/send-campaign", campaignBody(ids, false))
	c.Set("company_id", company.ID)
	c.Set("email", "owner@acme.test")

	require.NoError(t, h.Send(c))
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Success bool              `json:"success"`
		Results []RecipientResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 3, "one failure must not abort the batch")

	byID := map[uint]RecipientResult{}
	for _, r := range body.Results {
		byID[r.ID] = r
	}
	assert.Equal(t, "success", byID[links[0].ID].Status)
	assert.Equal(t, "failed", byID[links[1].ID].Status)
	assert.Equal(t, "success", byID[links[2].ID].Status)

	// Successes advance to SENT, the failure stays PENDING
	for i, want := range []string{model.VerificationSent, model.VerificationPending, model.VerificationSent} {
		var cv model.CompanyVendor
		require.NoError(t, db.First(&cv, links[i].ID).Error)
		assert.Equal(t, want, cv.VerificationStatus, "link %d", i)
	}

	// Two emails actually went out
	assert.Len(t, mail.sent, 2)
}

func TestCampaignSend_RendersTemplates(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	mail := newFakeMailer()
	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	c, rec := newJSONContext(t, http.MethodPost, "/api/send-campaign",
		campaignBody([]uint{links[0].ID}, false))
	c.Set("company_id", company.ID)
	c.Set("email", "owner@acme.test")

	require.NoError(t, h.Send(c))
	assertStatus(t, rec, http.StatusOK)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, "ops@northern.test", msg.To)
	assert.Equal(t, "Compliance request from Acme Manufacturing", msg.Subject)
	assert.Contains(t, msg.HTML, "Dear Northern Textiles")
	assert.Contains(t, msg.HTML, "http://portal.test/verify?token=")
	assert.NotContains(t, msg.HTML, "{{")

	// The email link must carry the request's magic token
	var request model.SupplierRequest
	require.NoError(t, db.Where("company_vendor_id = ?", links[0].ID).First(&request).Error)
	assert.Contains(t, msg.HTML, request.MagicToken)

	var logs []model.ComplianceLog
	require.NoError(t, db.Where("company_vendor_id = ?", links[0].ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionRequestSent, logs[0].ActionType)
}

func TestCampaignSend_UnknownRecipientContinues(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	mail := newFakeMailer()
	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	c, rec := newJSONContext(t, http.MethodPost, "/api/send-campaign",
		campaignBody([]uint{9999, links[0].ID}, false))
	c.Set("company_id", company.ID)
	c.Set("email", "owner@acme.test")

	require.NoError(t, h.Send(c))
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Results []RecipientResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "error", body.Results[0].Status)
	assert.Equal(t, "success", body.Results[1].Status)
}

func TestCampaignSend_NeverRegressesVerified(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	require.NoError(t, db.Model(&model.CompanyVendor{}).
		Where("id = ?", links[0].ID).
		Update("verification_status", model.VerificationVerified).Error)

	mail := newFakeMailer()
	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	c, _ := newJSONContext(t, http.MethodPost, "/api/send-campaign",
		campaignBody([]uint{links[0].ID}, false))
	c.Set("company_id", company.ID)
	c.Set("email", "owner@acme.test")

	require.NoError(t, h.Send(c))

	var cv model.CompanyVendor
	require.NoError(t, db.First(&cv, links[0].ID).Error)
	assert.Equal(t, model.VerificationVerified, cv.VerificationStatus,
		"a re-send must not move VERIFIED back to SENT")
}

func TestCampaignSend_TestModeTouchesNothing(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	mail := newFakeMailer()
	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	c, rec := newJSONContext(t, http.MethodPost, "/api/send-campaign",
		campaignBody([]uint{links[0].ID, links[1].ID}, true))
	c.Set("company_id", company.ID)
	c.Set("email", "owner@acme.test")

	require.NoError(t, h.Send(c))
	assertStatus(t, rec, http.StatusOK)

	// One preview to the caller, nothing else
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "owner@acme.test", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Subject, "Acme Manufacturing")

	var requestCount, logCount int64
	require.NoError(t, db.Model(&model.SupplierRequest{}).Count(&requestCount).Error)
	require.NoError(t, db.Model(&model.ComplianceLog{}).Count(&logCount).Error)
	assert.Zero(t, requestCount, "test mode must not create request rows")
	assert.Zero(t, logCount, "test mode must not write audit rows")

	var cv model.CompanyVendor
	require.NoError(t, db.First(&cv, links[0].ID).Error)
	assert.Equal(t, model.VerificationPending, cv.VerificationStatus,
		"test mode must not alter vendor status")
}

func TestCampaignSend_EachDispatchMintsFreshToken(t *testing.T) {
	setupTest(t)
	db := setupTestDB(t)
	company, links := seedCampaignFixture(t, db)

	mail := newFakeMailer()
	h := NewCampaignHandler(db, mail, "http://portal.test", 7)

	for i := 0; i < 2; i++ {
		c, _ := newJSONContext(t, http.MethodPost, "/api/send-campaign",
			campaignBody([]uint{links[0].ID}, false))
		c.Set("company_id", company.ID)
		c.Set("email", "owner@acme.test")
		require.NoError(t, h.Send(c))
	}

	var requests []model.SupplierRequest
	require.NoError(t, db.Where("company_vendor_id = ?", links[0].ID).Find(&requests).Error)
	require.Len(t, requests, 2, "re-sends create new request rows")
	assert.NotEqual(t, requests[0].MagicToken, requests[1].MagicToken,
		"tokens are never reused across requests")
}
