package handler

import (
	"fmt"
	"net/http"
	"time"

	"compliance-service/internal/model"
	"compliance-service/pkg/logger"
	"compliance-service/pkg/mailer"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CampaignHandler dispatches compliance request campaigns to vendors.
type CampaignHandler struct {
	db           *gorm.DB
	mail         mailer.Mailer
	portalOrigin string
	deadlineDays int
}

// NewCampaignHandler builds the campaign handler
func NewCampaignHandler(db *gorm.DB, mail mailer.Mailer, portalOrigin string, deadlineDays int) *CampaignHandler {
	return &CampaignHandler{
		db:           db,
		mail:         mail,
		portalOrigin: portalOrigin,
		deadlineDays: deadlineDays,
	}
}

type campaignRequest struct {
	IDs      []uint `json:"ids"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	TestMode bool   `json:"test_mode"`
}

// RecipientResult is the per-recipient outcome of a campaign dispatch.
type RecipientResult struct {
	ID     uint   `json:"id"`
	Status string `json:"status"` // success | failed | error
	Detail string `json:"detail,omitempty"`
}

// Send dispatches one campaign. Each recipient is processed independently:
// a failed send never aborts the rest of the batch, it just shows up as
// one failed entry in the result array.
func (h *CampaignHandler) Send(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCampaignOperation("send")

	var req campaignRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid campaign request", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "invalid request",
		})
	}
	if req.Subject == "" || req.Body == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "subject and body are required",
		})
	}

	companyID, ok := c.Get("company_id").(uint)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "company context required",
		})
	}

	var company model.Company
	if err := h.db.First(&company, companyID).Error; err != nil {
		log.Error("Failed to load dispatching company", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "company not found",
		})
	}

	deadline := time.Now().AddDate(0, 0, h.deadlineDays).Format("January 2, 2006")

	// Test mode: one rendered sample to the caller's own address. No
	// tokens, no request rows, no vendor state touched.
	if req.TestMode {
		return h.sendTestSample(c, &company, req, deadline)
	}

	if len(req.IDs) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "ids are required",
		})
	}

	log.Info("Dispatching campaign",
		zap.Int("recipients", len(req.IDs)),
		zap.Uint("company_id", companyID))

	results := make([]RecipientResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		results = append(results, h.dispatchOne(c, &company, id, req, deadline))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"results": results,
	})
}

// dispatchOne handles a single recipient end to end. All failure paths
// return a result entry instead of an error so the loop in Send stays
// isolated per recipient.
func (h *CampaignHandler) dispatchOne(c echo.Context, company *model.Company, id uint, req campaignRequest, deadline string) RecipientResult {
	log := logger.FromContext(c)

	// Resolve the link row, scoped to the caller's company through the
	// owning cycle
	var companyVendor model.CompanyVendor
	err := h.db.Preload("Vendor").
		Joins("JOIN reporting_cycles ON reporting_cycles.id = company_vendors.cycle_id").
		Where("company_vendors.id = ? AND reporting_cycles.company_id = ?", id, company.ID).
		First(&companyVendor).Error
	if err != nil {
		log.Warn("Campaign recipient lookup failed",
			zap.Uint("company_vendor_id", id),
			zap.Error(err))
		prometheus.RecordCampaignEmail("error")
		return RecipientResult{ID: id, Status: "error", Detail: "vendor not found"}
	}

	// Token issuer: one fresh request row per dispatch. The token comes
	// from the row's create hook, never from the caller.
	request := model.SupplierRequest{
		CompanyVendorID: companyVendor.ID,
		Status:          model.RequestPending,
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&request).Error; err != nil {
		log.Error("Failed to create supplier request",
			zap.Uint("company_vendor_id", id),
			zap.Error(err))
		prometheus.RecordCampaignEmail("error")
		return RecipientResult{ID: id, Status: "error", Detail: "could not create request"}
	}

	link := fmt.Sprintf("%s/verify?token=%s", h.portalOrigin, request.MagicToken)
	vars := mailer.TemplateVars{
		CompanyName: companyVendor.Vendor.CompanyName,
		ClientName:  company.Name,
		Link:        link,
		Deadline:    deadline,
	}

	msg := mailer.Message{
		To:      companyVendor.Vendor.ContactEmail,
		Subject: mailer.RenderTemplate(req.Subject, vars),
		HTML:    mailer.RenderTemplate(req.Body, vars),
	}

	if err := h.mail.Send(c.Request().Context(), msg); err != nil {
		log.Error("Campaign email delivery failed",
			zap.Uint("company_vendor_id", id),
			zap.String("to", companyVendor.Vendor.ContactEmail),
			zap.Error(err))
		prometheus.RecordCampaignEmail("failed")
		return RecipientResult{ID: id, Status: "failed", Detail: err.Error()}
	}

	// Forward-only advance to SENT; a re-send to a VERIFIED vendor leaves
	// the status alone
	if model.VerificationAdvances(companyVendor.VerificationStatus, model.VerificationSent) {
		if err := h.db.Model(&companyVendor).
			Update("verification_status", model.VerificationSent).Error; err != nil {
			log.Error("Email sent but status update failed",
				zap.Uint("company_vendor_id", id),
				zap.Error(err))
			prometheus.RecordCampaignEmail("error")
			return RecipientResult{ID: id, Status: "error", Detail: "sent but status update failed"}
		}
	}

	auditEntry := model.ComplianceLog{
		CompanyVendorID: companyVendor.ID,
		ActionType:      model.ActionRequestSent,
		Details:         fmt.Sprintf("Compliance request sent to %s", companyVendor.Vendor.ContactEmail),
	}
	if err := h.db.Create(&auditEntry).Error; err != nil {
		log.Error("Email sent but audit log write failed",
			zap.Uint("company_vendor_id", id),
			zap.Error(err))
	}

	log.Info("Campaign email sent",
		zap.Uint("company_vendor_id", id),
		zap.String("to", companyVendor.Vendor.ContactEmail))
	prometheus.RecordCampaignEmail("success")
	return RecipientResult{ID: id, Status: "success"}
}

// sendTestSample renders the templates with the caller's own company
// standing in for the vendor and mails a single preview to the caller.
func (h *CampaignHandler) sendTestSample(c echo.Context, company *model.Company, req campaignRequest, deadline string) error {
	log := logger.FromContext(c)
	prometheus.RecordCampaignOperation("test")

	email, ok := c.Get("email").(string)
	if !ok || email == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "caller email unavailable",
		})
	}

	vars := mailer.TemplateVars{
		CompanyName: company.Name,
		ClientName:  company.Name,
		Link:        fmt.Sprintf("%s/verify?token=sample", h.portalOrigin),
		Deadline:    deadline,
	}

	msg := mailer.Message{
		To:      email,
		Subject: mailer.RenderTemplate(req.Subject, vars),
		HTML:    mailer.RenderTemplate(req.Body, vars),
	}

	if err := h.mail.Send(c.Request().Context(), msg); err != nil {
		log.Error("Test sample delivery failed", zap.String("to", email), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	log.Info("Test sample sent", zap.String("to", email))
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"test_mode": true,
	})
}
