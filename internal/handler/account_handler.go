package handler

import (
	"errors"
	"net/http"
	"time"

	"compliance-service/internal/model"
	"compliance-service/pkg/jwtutil"
	"compliance-service/pkg/logger"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountHandler claims anonymous audits into real accounts and handles
// onboarding. Unlike the portal surface, this endpoint returns real 4xx
// status codes on failure.
type AccountHandler struct {
	db *gorm.DB
}

// NewAccountHandler builds the account handler
func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{db: db}
}

type claimAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AuditID  uint   `json:"audit_id"`
}

// ClaimAccount creates or signs in an account and links a previously
// anonymous audit to it. Claiming an already-claimed audit with the same
// account is a no-op success.
func (h *AccountHandler) ClaimAccount(c echo.Context) error {
	log := logger.FromContext(c)

	var req claimAccountRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid claim request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	// Sign in if the account exists, create it otherwise
	var user model.User
	err := h.db.Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			log.Warn("Invalid password on claim", zap.String("email", req.Email))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			log.Error("Failed to hash password", zap.Error(hashErr))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
		}
		user = model.User{Email: req.Email, PasswordHash: string(hash)}
		if createErr := h.db.Create(&user).Error; createErr != nil {
			log.Error("Failed to create user", zap.Error(createErr))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
		}
		log.Info("Account created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	default:
		log.Error("User lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
	}

	// Link the audit if one was passed along
	if req.AuditID != 0 {
		var audit model.Audit
		if err := h.db.First(&audit, req.AuditID).Error; err != nil {
			log.Warn("Claim for unknown audit", zap.Uint("audit_id", req.AuditID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "audit not found"})
		}
		switch {
		case audit.UserID == nil:
			if err := h.db.Model(&audit).Update("user_id", user.ID).Error; err != nil {
				log.Error("Failed to link audit", zap.Uint("audit_id", audit.ID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not link audit"})
			}
		case *audit.UserID == user.ID:
			// Already claimed by this account, nothing to do
		default:
			log.Warn("Audit already claimed by another account",
				zap.Uint("audit_id", audit.ID))
			return c.JSON(http.StatusConflict, echo.Map{"error": "audit already claimed"})
		}
	}

	token, err := h.issueToken(&user)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": user.ID,
		"token":   token,
	})
}

type onboardingRequest struct {
	CompanyName string `json:"company_name"`
}

// Onboarding creates the caller's company together with the current-year
// reporting cycle, and reissues a token carrying the company context.
func (h *AccountHandler) Onboarding(c echo.Context) error {
	log := logger.FromContext(c)

	var req onboardingRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid onboarding request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.CompanyName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "company_name is required"})
	}

	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		log.Error("Onboarding user lookup failed", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if user.CompanyID != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "company already set up"})
	}

	company := model.Company{
		Name:         req.CompanyName,
		ContactEmail: user.Email,
	}
	if err := h.db.Create(&company).Error; err != nil {
		log.Error("Failed to create company", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create company"})
	}

	year := time.Now().Year()
	cycle := model.ReportingCycle{
		CompanyID: company.ID,
		Year:      year,
		Label:     req.CompanyName + " " + time.Now().Format("2006"),
	}
	if err := h.db.Create(&cycle).Error; err != nil {
		log.Error("Failed to create reporting cycle", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reporting cycle"})
	}

	if err := h.db.Model(&user).Update("company_id", company.ID).Error; err != nil {
		log.Error("Failed to attach user to company", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not finish onboarding"})
	}
	user.CompanyID = &company.ID

	token, err := h.issueToken(&user)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Company onboarded",
		zap.Uint("company_id", company.ID),
		zap.Int("cycle_year", year))

	return c.JSON(http.StatusOK, echo.Map{
		"company": company,
		"cycle":   cycle,
		"token":   token,
	})
}

// issueToken generates a session token, including company claims when the
// user has one.
func (h *AccountHandler) issueToken(user *model.User) (string, error) {
	if user.CompanyID == nil {
		return jwtutil.GenerateToken(user.Email, user.ID, user.Premium)
	}
	var company model.Company
	if err := h.db.First(&company, *user.CompanyID).Error; err != nil {
		return "", err
	}
	return jwtutil.GenerateTokenWithCompany(user.Email, user.ID, user.CompanyID, company.Name, user.Premium)
}
