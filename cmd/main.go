package main

import (
	"strconv"
	"strings"
	"time"

	"compliance-service/internal/handler"
	"compliance-service/internal/middleware"
	"compliance-service/internal/risk"
	"compliance-service/internal/scan"
	"compliance-service/pkg/config"
	"compliance-service/pkg/database"
	"compliance-service/pkg/jwtutil"
	"compliance-service/pkg/llm"
	"compliance-service/pkg/logger"
	"compliance-service/pkg/mailer"
	"compliance-service/pkg/storage"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting compliance service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Name))

	db := database.GetDB()

	// External collaborators
	mailClient := mailer.New(&cfg.Mail)
	modelClient := llm.New(&cfg.AI)
	uploadSigner := storage.NewSigner(&cfg.Storage)
	siteScanner := scan.NewScanner(&cfg.Scan)

	var highRisk []string
	if cfg.Portal.HighRiskSource != "" {
		highRisk = strings.Split(cfg.Portal.HighRiskSource, ",")
	}
	classifier := risk.NewClassifier(highRisk)

	// Handlers
	scanHandler := handler.NewScanHandler(db, siteScanner)
	accountHandler := handler.NewAccountHandler(db)
	aiHandler := handler.NewAIHandler(db, modelClient)
	campaignHandler := handler.NewCampaignHandler(db, mailClient, cfg.Portal.Origin, cfg.Portal.DeadlineDays)
	portalHandler := handler.NewPortalHandler(db, uploadSigner)
	vendorHandler := handler.NewVendorHandler(db, classifier)
	teamHandler := handler.NewTeamHandler(db, mailClient, cfg.Portal.Origin)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := c.Response().Status

			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Float64("duration_s", duration),
				zap.String("ip", c.RealIP()),
			)

			prometheus.HttpRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Request().URL.Path,
				strconv.Itoa(status),
			).Inc()

			prometheus.HttpRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Request().URL.Path,
				strconv.Itoa(status),
			).Observe(duration)

			return err
		}
	})

	// Public routes
	e.GET("/", handler.Hello)
	e.GET("/health", handler.Hello)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public compliance surface: errors ride in the body with HTTP 200,
	// except auth-claim-account which returns real status codes
	e.POST("/instant-scan", scanHandler.InstantScan)
	e.POST("/auth-claim-account", accountHandler.ClaimAccount)
	e.POST("/update-checklist", scanHandler.UpdateChecklist)
	e.POST("/get-ai-fix", aiHandler.GetFix)
	e.POST("/portal-init", portalHandler.Init)
	e.POST("/portal-submit", portalHandler.Submit)

	// Authenticated dashboard routes
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	api.POST("/onboarding", accountHandler.Onboarding)
	api.POST("/team/join", teamHandler.Join)

	// Routes that require an onboarded company
	company := api.Group("")
	company.Use(middleware.RequireCompanyContext)

	company.POST("/vendors", vendorHandler.Create)
	company.POST("/vendors/import", vendorHandler.Import)
	company.GET("/vendors", vendorHandler.List)
	company.POST("/send-campaign", campaignHandler.Send)
	company.POST("/generate-ai-report", aiHandler.GenerateReport)
	company.POST("/team/invite", teamHandler.Invite)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
