package handler

import (
	"fmt"
	"net/http"
	"time"

	"compliance-service/internal/model"
	"compliance-service/pkg/logger"
	"compliance-service/pkg/storage"
	"compliance-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PortalHandler serves the externally-facing vendor portal. The magic token
// is the only credential; there is no session. Every business error comes
// back as {"success":false} with HTTP 200 so the portal can render a clean
// message instead of a generic network failure.
type PortalHandler struct {
	db     *gorm.DB
	signer *storage.Signer
}

// NewPortalHandler builds the portal handler
func NewPortalHandler(db *gorm.DB, signer *storage.Signer) *PortalHandler {
	return &PortalHandler{db: db, signer: signer}
}

type portalInitRequest struct {
	Token string `json:"token"`
}

type portalSubmitRequest struct {
	Token    string `json:"token"`
	FilePath string `json:"filePath"`
}

func portalError(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": false,
		"error":   msg,
	})
}

// resolveRequest looks up a SupplierRequest by exact token match. The error
// message never says which part of the token was wrong.
func (h *PortalHandler) resolveRequest(token string) (*model.SupplierRequest, error) {
	var req model.SupplierRequest
	if err := h.db.Where("magic_token = ?", token).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Init bootstraps the vendor portal for one magic token. First view flips
// the request PENDING -> VIEWED; visiting again is a no-op.
func (h *PortalHandler) Init(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPortalOperation("init")

	var req portalInitRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid portal init request", zap.Error(err))
		return portalError(c, "invalid request")
	}
	if req.Token == "" {
		return portalError(c, "token is required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	request, err := h.resolveRequest(req.Token)
	if err != nil {
		log.Warn("Portal token did not resolve")
		return portalError(c, "invalid or expired link")
	}

	// Resolve display names through the owning link row and cycle. A
	// missing name means an orphaned row, reported distinctly from a bad
	// token.
	var companyVendor model.CompanyVendor
	if err := h.db.Preload("Vendor").Preload("Cycle.Company").
		First(&companyVendor, request.CompanyVendorID).Error; err != nil {
		log.Error("Failed to resolve company vendor for portal request",
			zap.Uint("request_id", request.ID),
			zap.Error(err))
		return portalError(c, "could not resolve this request")
	}

	vendorName := companyVendor.Vendor.CompanyName
	companyName := companyVendor.Cycle.Company.Name
	if vendorName == "" || companyName == "" {
		log.Error("Portal request resolved to missing names",
			zap.Uint("request_id", request.ID))
		return portalError(c, "could not resolve this request")
	}

	// First view flips the status. Idempotent: never regresses VIEWED and
	// never touches what the submission recorder has set.
	if request.Status == model.RequestPending {
		if err := h.db.Model(request).
			Where("status = ?", model.RequestPending).
			Update("status", model.RequestViewed).Error; err != nil {
			log.Error("Failed to mark request viewed",
				zap.Uint("request_id", request.ID),
				zap.Error(err))
			return portalError(c, "could not resolve this request")
		}
		request.Status = model.RequestViewed
	}

	// Short-lived signed upload URL, namespaced by the request id
	uploadPath := fmt.Sprintf("evidence/%d/%s", request.ID, uuid.NewString())
	uploadURL := h.signer.SignUpload(uploadPath)

	log.Info("Portal initialized",
		zap.Uint("request_id", request.ID),
		zap.String("status", request.Status))

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"company_name": companyName,
		"vendor_name":  vendorName,
		"upload_url":   uploadURL,
		"upload_path":  uploadPath,
		"status":       request.Status,
	})
}

// Submit records an uploaded evidence file against the request identified
// by the magic token. Evidence appends preserve prior entries; the owning
// CompanyVendor advances to VERIFIED; an audit row is written. The three
// writes run sequentially with no compensating rollback, so any step's
// failure is terminal for the request.
func (h *PortalHandler) Submit(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPortalOperation("submit")

	var req portalSubmitRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid portal submit request", zap.Error(err))
		return portalError(c, "invalid request")
	}
	if req.Token == "" {
		return portalError(c, "token is required")
	}
	if req.FilePath == "" {
		return portalError(c, "filePath is required")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	request, err := h.resolveRequest(req.Token)
	if err != nil {
		log.Warn("Portal token did not resolve on submit")
		return portalError(c, "invalid or expired link")
	}

	// Read-modify-write: append to the existing list, never overwrite
	now := time.Now()
	request.EvidenceFiles = append(request.EvidenceFiles, model.EvidenceFile{
		Path:       req.FilePath,
		UploadedAt: now,
	})
	request.Status = model.RequestSubmitted
	request.SubmittedAt = &now

	if err := h.db.Save(request).Error; err != nil {
		log.Error("Failed to record submission",
			zap.Uint("request_id", request.ID),
			zap.Error(err))
		return portalError(c, "could not record submission")
	}

	// Advance the owning link row, forward only
	var companyVendor model.CompanyVendor
	if err := h.db.First(&companyVendor, request.CompanyVendorID).Error; err != nil {
		log.Error("Submission recorded but company vendor lookup failed",
			zap.Uint("request_id", request.ID),
			zap.Error(err))
		return portalError(c, "submission partially recorded, please contact support")
	}
	if model.VerificationAdvances(companyVendor.VerificationStatus, model.VerificationVerified) {
		if err := h.db.Model(&companyVendor).
			Update("verification_status", model.VerificationVerified).Error; err != nil {
			log.Error("Submission recorded but status update failed",
				zap.Uint("company_vendor_id", companyVendor.ID),
				zap.Error(err))
			return portalError(c, "submission partially recorded, please contact support")
		}
	}

	auditEntry := model.ComplianceLog{
		CompanyVendorID: companyVendor.ID,
		ActionType:      model.ActionVendorSubmitted,
		Details:         fmt.Sprintf("Evidence uploaded: %s", req.FilePath),
	}
	if err := h.db.Create(&auditEntry).Error; err != nil {
		log.Error("Submission recorded but audit log write failed",
			zap.Uint("company_vendor_id", companyVendor.ID),
			zap.Error(err))
		return portalError(c, "submission partially recorded, please contact support")
	}

	log.Info("Vendor submission recorded",
		zap.Uint("request_id", request.ID),
		zap.Uint("company_vendor_id", companyVendor.ID),
		zap.Int("evidence_count", len(request.EvidenceFiles)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
	})
}
