package handler

import (
	"net/http"
	"time"

	"compliance-service/internal/model"
	"compliance-service/internal/scan"
	"compliance-service/pkg/logger"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScanHandler runs the anonymous instant website audit.
type ScanHandler struct {
	db      *gorm.DB
	scanner *scan.Scanner
}

// NewScanHandler builds the scan handler
func NewScanHandler(db *gorm.DB, scanner *scan.Scanner) *ScanHandler {
	return &ScanHandler{db: db, scanner: scanner}
}

type instantScanRequest struct {
	Email string `json:"email"`
	URL   string `json:"url"`
}

// InstantScan fetches the target site, classifies the compliance markers
// and records an anonymous audit row the visitor can claim later.
func (h *ScanHandler) InstantScan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordScanOperation("instant")

	var req instantScanRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid scan request", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "invalid request",
		})
	}
	if req.Email == "" || req.URL == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "email and url are required",
		})
	}

	log.Info("Scanning website", zap.String("url", req.URL))

	results, err := h.scanner.Scan(c.Request().Context(), req.URL)
	if err != nil {
		log.Warn("Website scan failed", zap.String("url", req.URL), zap.Error(err))
		prometheus.RecordScanOperation("fetch_error")
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "could not reach the website: " + err.Error(),
		})
	}

	audit := model.Audit{
		Email:       req.Email,
		URL:         req.URL,
		ScanResults: results,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&audit).Error; err != nil {
		log.Error("Failed to record audit", zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "could not record audit",
		})
	}

	log.Info("Audit recorded",
		zap.Uint("audit_id", audit.ID),
		zap.Bool("privacy_policy", results.HasPrivacyPolicy),
		zap.Bool("cookie_banner", results.HasCookieBanner),
		zap.Bool("lang_attribute", results.HasLangAttribute))

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"audit_id":     audit.ID,
		"scan_results": results,
	})
}

type updateChecklistRequest struct {
	AuditID       uint                   `json:"audit_id"`
	ChecklistData map[string]interface{} `json:"checklist_data"`
}

// UpdateChecklist stores in-progress checklist answers against an audit.
func (h *ScanHandler) UpdateChecklist(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordScanOperation("checklist")

	var req updateChecklistRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid checklist request", zap.Error(err))
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
		log.Warn("Checklist update for unknown audit", zap.Uint("audit_id", req.AuditID))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "audit not found",
		})
	}

	audit.ChecklistData = req.ChecklistData

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.db.Save(&audit).Error; err != nil {
		log.Error("Failed to update checklist", zap.Uint("audit_id", audit.ID), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{
			"success": false,
			"error":   "could not update checklist",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
	})
}
