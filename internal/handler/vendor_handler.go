package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compliance-service/internal/model"
	"compliance-service/internal/risk"
	"compliance-service/pkg/logger"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VendorHandler manages vendors within the caller's active reporting cycle.
type VendorHandler struct {
	db         *gorm.DB
	classifier *risk.Classifier
}

// NewVendorHandler builds the vendor handler
func NewVendorHandler(db *gorm.DB, classifier *risk.Classifier) *VendorHandler {
	return &VendorHandler{db: db, classifier: classifier}
}

type vendorRequest struct {
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email"`
	Country      string `json:"country"`
}

// ImportRowResult is the per-row outcome of a CSV import.
type ImportRowResult struct {
	Row    int    `json:"row"`
	Status string `json:"status"` // success | error
	Detail string `json:"detail,omitempty"`
}

// activeCycle returns the company's most recent reporting cycle.
func (h *VendorHandler) activeCycle(companyID uint) (*model.ReportingCycle, error) {
	var cycle model.ReportingCycle
	err := h.db.Where("company_id = ?", companyID).
		Order("year desc").
		First(&cycle).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// linkVendor creates the Vendor and its CompanyVendor link row, deriving
// the risk status once at link time.
func (h *VendorHandler) linkVendor(cycleID uint, req vendorRequest) (*model.CompanyVendor, error) {
	vendor := model.Vendor{
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		Country:      req.Country,
	}
	if err := h.db.Create(&vendor).Error; err != nil {
		return nil, fmt.Errorf("creating vendor: %w", err)
	}

	companyVendor := model.CompanyVendor{
		CycleID:            cycleID,
		VendorID:           vendor.ID,
		RiskStatus:         h.classifier.Classify(req.Country),
		VerificationStatus: model.VerificationPending,
	}
	if err := h.db.Create(&companyVendor).Error; err != nil {
		return nil, fmt.Errorf("linking vendor: %w", err)
	}
	companyVendor.Vendor = vendor
	return &companyVendor, nil
}

// Create adds a single vendor to the active cycle
func (h *VendorHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid vendor request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.CompanyName == "" || req.ContactEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_name and contact_email are required"})
	}

	companyID, _ := c.Get("company_id").(uint)
	cycle, err := h.activeCycle(companyID)
	if err != nil {
		log.Warn("No active reporting cycle", zap.Uint("company_id", companyID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no active reporting cycle"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	companyVendor, err := h.linkVendor(cycle.ID, req)
	if err != nil {
		log.Error("Failed to create vendor", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create vendor"})
	}

	log.Info("Vendor linked",
		zap.Uint("company_vendor_id", companyVendor.ID),
		zap.String("risk_status", companyVendor.RiskStatus))

	return c.JSON(http.StatusCreated, companyVendor)
}

// Import ingests a CSV of vendors: company_name,contact_email,country with
// a header row. Rows are processed independently; a bad row becomes one
// error entry, not an aborted import.
func (h *VendorHandler) Import(c echo.Context) error {
	log := logger.FromContext(c)

	companyID, _ := c.Get("company_id").(uint)
	cycle, err := h.activeCycle(companyID)
	if err != nil {
		log.Warn("No active reporting cycle", zap.Uint("company_id", companyID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no active reporting cycle"})
	}

	reader := csv.NewReader(c.Request().Body)
	reader.FieldsPerRecord = -1

	var results []ImportRowResult
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			results = append(results, ImportRowResult{Row: row, Status: "error", Detail: "unreadable row"})
			continue
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "company_name") {
			// Header row
			continue
		}
		if len(record) < 2 {
			results = append(results, ImportRowResult{Row: row, Status: "error", Detail: "expected company_name,contact_email,country"})
			continue
		}

		req := vendorRequest{
			CompanyName:  strings.TrimSpace(record[0]),
			ContactEmail: strings.TrimSpace(record[1]),
		}
		if len(record) > 2 {
			req.Country = strings.TrimSpace(record[2])
		}
		if req.CompanyName == "" || req.ContactEmail == "" {
			results = append(results, ImportRowResult{Row: row, Status: "error", Detail: "missing name or email"})
			continue
		}

		if _, err := h.linkVendor(cycle.ID, req); err != nil {
			log.Error("Import row failed", zap.Int("row", row), zap.Error(err))
			results = append(results, ImportRowResult{Row: row, Status: "error", Detail: "could not create vendor"})
			continue
		}
		results = append(results, ImportRowResult{Row: row, Status: "success"})
	}

	log.Info("Vendor import finished",
		zap.Uint("cycle_id", cycle.ID),
		zap.Int("rows", len(results)))

	return c.JSON(http.StatusOK, echo.Map{
		"results": results,
	})
}

// List returns the active cycle's vendors with their statuses
func (h *VendorHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	companyID, _ := c.Get("company_id").(uint)
	cycle, err := h.activeCycle(companyID)
	if err != nil {
		log.Warn("No active reporting cycle", zap.Uint("company_id", companyID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no active reporting cycle"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var companyVendors []model.CompanyVendor
	if err := h.db.Preload("Vendor").
		Where("cycle_id = ?", cycle.ID).
		Order("created_at asc").
		Find(&companyVendors).Error; err != nil {
		log.Error("Failed to list vendors", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list vendors"})
	}

	// Refresh the per-status gauge while we have the rows in hand
	counts := map[string]int{}
	for _, cv := range companyVendors {
		counts[cv.VerificationStatus]++
	}
	for _, status := range []string{model.VerificationPending, model.VerificationSent, model.VerificationVerified} {
		prometheus.UpdateVendorStatusCount(status, counts[status])
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cycle":   cycle,
		"vendors": companyVendors,
	})
}
