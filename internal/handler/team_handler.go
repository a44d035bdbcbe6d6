package handler

import (
	"fmt"
	"net/http"
	"time"

	"compliance-service/internal/model"
	"compliance-service/pkg/jwtutil"
	"compliance-service/pkg/logger"
	"compliance-service/pkg/mailer"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TeamHandler manages tokenized team invitations for the dashboard.
type TeamHandler struct {
	db           *gorm.DB
	mail         mailer.Mailer
	portalOrigin string
}

// NewTeamHandler builds the team handler
func NewTeamHandler(db *gorm.DB, mail mailer.Mailer, portalOrigin string) *TeamHandler {
	return &TeamHandler{db: db, mail: mail, portalOrigin: portalOrigin}
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Invite creates an invitation and emails the join link
func (h *TeamHandler) Invite(c echo.Context) error {
	log := logger.FromContext(c)

	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid invite request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	companyID, _ := c.Get("company_id").(uint)
	companyName, _ := c.Get("company_name").(string)

	invitation := model.Invitation{
		CompanyID: companyID,
		Email:     req.Email,
		Role:      req.Role,
	}
	if err := h.db.Create(&invitation).Error; err != nil {
		log.Error("Failed to create invitation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create invitation"})
	}

	joinLink := fmt.Sprintf("%s/join?token=%s", h.portalOrigin, invitation.Token)
	msg := mailer.Message{
		To:      req.Email,
		Subject: fmt.Sprintf("You have been invited to join %s", companyName),
		HTML: fmt.Sprintf("<p>%s invited you to their compliance dashboard.</p><p><a href=%q>Accept the invitation</a></p>",
			companyName, joinLink),
	}
	if err := h.mail.Send(c.Request().Context(), msg); err != nil {
		log.Error("Invitation email delivery failed", zap.String("to", req.Email), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "invitation created but email delivery failed"})
	}

	log.Info("Invitation sent", zap.String("to", req.Email), zap.Uint("company_id", companyID))

	return c.JSON(http.StatusCreated, echo.Map{
		"invitation_id": invitation.ID,
	})
}

type joinRequest struct {
	Token string `json:"token"`
}

// Join attaches the authenticated caller to the inviting company
func (h *TeamHandler) Join(c echo.Context) error {
	log := logger.FromContext(c)

	var req joinRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid join request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	userID, _ := c.Get("user_id").(uint)
	email, _ := c.Get("email").(string)

	var invitation model.Invitation
	if err := h.db.Where("token = ?", req.Token).First(&invitation).Error; err != nil {
		log.Warn("Join token did not resolve")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid invitation"})
	}
	if invitation.AcceptedAt != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "invitation already used"})
	}
	if invitation.Email != email {
		log.Warn("Join attempted with mismatched account",
			zap.Uint("invitation_id", invitation.ID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invitation was issued to a different address"})
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	now := time.Now()
	if err := h.db.Model(&user).Update("company_id", invitation.CompanyID).Error; err != nil {
		log.Error("Failed to attach user to company", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not join company"})
	}
	if err := h.db.Model(&invitation).Update("accepted_at", &now).Error; err != nil {
		log.Error("Failed to mark invitation accepted", zap.Error(err))
	}
	user.CompanyID = &invitation.CompanyID

	var company model.Company
	if err := h.db.First(&company, invitation.CompanyID).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve company"})
	}

	token, err := jwtutil.GenerateTokenWithCompany(user.Email, user.ID, user.CompanyID, company.Name, user.Premium)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Team member joined",
		zap.Uint("user_id", user.ID),
		zap.Uint("company_id", invitation.CompanyID))

	return c.JSON(http.StatusOK, echo.Map{
		"company": company,
		"token":   token,
	})
}
