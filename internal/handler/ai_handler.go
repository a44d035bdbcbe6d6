package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"compliance-service/internal/model"
	"compliance-service/pkg/llm"
	"compliance-service/pkg/logger"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AIHandler drafts compliance documents through the model provider, as one
// JSON payload or relayed to the browser as Server-Sent Events.
type AIHandler struct {
	db       *gorm.DB
	provider llm.Provider
}

// NewAIHandler builds the AI handler
func NewAIHandler(db *gorm.DB, provider llm.Provider) *AIHandler {
	return &AIHandler{db: db, provider: provider}
}

type aiFixRequest struct {
	AuditID  uint   `json:"audit_id"`
	Language string `json:"language"`
	Stream   bool   `json:"stream"`
}

// GetFix generates a remediation document for one website audit, gated on
// the audit's premium flag. With stream=true the upstream deltas are
// relayed in arrival order as SSE frames.
func (h *AIHandler) GetFix(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAIOperation("fix")

	var req aiFixRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid AI fix request", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "invalid request",
		})
	}
	if req.AuditID == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "audit_id is required",
		})
	}

	var audit model.Audit
	if err := h.db.First(&audit, req.AuditID).Error; err != nil {
		log.Warn("AI fix for unknown audit", zap.Uint("audit_id", req.AuditID))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "audit not found",
		})
	}
	if !audit.Premium {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "premium required",
		})
	}

	prompt := buildFixPrompt(&audit, req.Language)

	if req.Stream {
		return h.streamFix(c, prompt)
	}

	resp, err := h.provider.Complete(c.Request().Context(), prompt)
	if err != nil {
		log.Error("Model call failed", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"document": resp.Content,
	})
}

// streamFix relays upstream text deltas to the client as SSE frames,
// flushed as they arrive. Frame format: data: {"delta":"..."}. Client
// disconnect cancels the request context, which stops the upstream pull.
func (h *AIHandler) streamFix(c echo.Context, prompt *llm.Request) error {
	log := logger.FromContext(c)
	prometheus.RecordAIOperation("stream")

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	err := h.provider.Stream(c.Request().Context(), prompt, func(delta string) error {
		frame, err := json.Marshal(echo.Map{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", frame); err != nil {
			return err
		}
		res.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; all we can do is log and close
		log.Warn("Stream relay ended with error", zap.Error(err))
	}

	return nil
}

type aiReportRequest struct {
	CompanyName   string `json:"companyName"`
	VendorCount   int    `json:"vendorCount"`
	HighRiskCount int    `json:"highRiskCount"`
	VerifiedCount int    `json:"verifiedCount"`
	VendorIDs     []uint `json:"vendorIds"`
}

// GenerateReport drafts the annual supply-chain compliance report from the
// dashboard's aggregate numbers plus the named vendors.
func (h *AIHandler) GenerateReport(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAIOperation("report")

	var req aiReportRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid report request", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "invalid request",
		})
	}
	if req.CompanyName == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "companyName is required",
		})
	}

	// Resolve vendor names for the narrative section
	var vendorNames []string
	if len(req.VendorIDs) > 0 {
		var vendors []model.Vendor
		if err := h.db.
			Joins("JOIN company_vendors ON company_vendors.vendor_id = vendors.id").
			Where("company_vendors.id IN ?", req.VendorIDs).
			Find(&vendors).Error; err == nil {
			for _, v := range vendors {
				vendorNames = append(vendorNames, v.CompanyName)
			}
		}
	}

	prompt := buildReportPrompt(&req, vendorNames)

	resp, err := h.provider.Complete(c.Request().Context(), prompt)
	if err != nil {
		log.Error("Model call failed", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	log.Info("Compliance report generated",
		zap.String("company", req.CompanyName),
		zap.Int("vendors", req.VendorCount))

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"reportText": resp.Content,
	})
}

func buildFixPrompt(audit *model.Audit, language string) *llm.Request {
	lang := "English"
	if strings.EqualFold(language, "fr") || strings.EqualFold(language, "french") {
		lang = "French"
	}

	var findings []string
	if !audit.ScanResults.HasPrivacyPolicy {
		findings = append(findings, "no privacy policy link was found (Law 25 concern)")
	}
	if !audit.ScanResults.HasCookieBanner {
		findings = append(findings, "no cookie consent banner was found (Law 25 concern)")
	}
	if !audit.ScanResults.HasLangAttribute {
		findings = append(findings, "the page declares no language attribute (Bill 96 concern)")
	} else if audit.ScanResults.DetectedLang != "" && !strings.HasPrefix(audit.ScanResults.DetectedLang, "fr") {
		findings = append(findings, fmt.Sprintf("the page language is %q, not French (Bill 96 concern)", audit.ScanResults.DetectedLang))
	}
	if len(findings) == 0 {
		findings = append(findings, "no automated findings; review manually")
	}

	return &llm.Request{
		SystemPrompt: "You are a Quebec compliance consultant. Draft practical, plainly worded remediation guidance for small business websites under Bill 96 and Law 25. Write in " + lang + ".",
		UserPrompt: fmt.Sprintf(
			"Website: %s\nFindings:\n- %s\n\nWrite a prioritized remediation plan addressing each finding.",
			audit.URL, strings.Join(findings, "\n- ")),
	}
}

func buildReportPrompt(req *aiReportRequest, vendorNames []string) *llm.Request {
	vendorList := "none listed"
	if len(vendorNames) > 0 {
		vendorList = strings.Join(vendorNames, ", ")
	}

	return &llm.Request{
		SystemPrompt: "You are drafting an annual supply-chain compliance report under Canada's Bill S-211 (Fighting Against Forced Labour and Child Labour in Supply Chains Act). Formal register, first person plural on behalf of the reporting company.",
		UserPrompt: fmt.Sprintf(
			"Company: %s\nVendors in scope: %d\nHigh-risk vendors: %d\nVerified vendors: %d\nNamed vendors: %s\n\nDraft the report body covering due diligence steps, risk assessment and verification progress.",
			req.CompanyName, req.VendorCount, req.HighRiskCount, req.VerifiedCount, vendorList),
	}
}
