package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"compliance-service/internal/model"
	"compliance-service/pkg/config"
	"compliance-service/pkg/jwtutil"
	"compliance-service/pkg/mailer"
	"compliance-service/prometheus"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var metricsOnce sync.Once

// setupTest initializes the process-wide pieces handlers lean on: metrics
// (registered once, the registry panics on duplicates) and JWT config.
func setupTest(t *testing.T) {
	t.Helper()
	metricsOnce.Do(func() {
		cfg, _ := config.Load()
		cfg.Metrics.Prefix = "test"
		prometheus.InitMetrics(cfg)
	})
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
}

// setupTestDB creates an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to SQLite test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Company{},
		&model.User{},
		&model.ReportingCycle{},
		&model.Vendor{},
		&model.CompanyVendor{},
		&model.SupplierRequest{},
		&model.ComplianceLog{},
		&model.Audit{},
		&model.Invitation{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// newJSONContext builds an echo context carrying a JSON body
func newJSONContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// seedCompanyVendor creates company -> cycle -> vendor -> link in one go
func seedCompanyVendor(t *testing.T, db *gorm.DB, companyName, vendorName, vendorEmail string) (*model.Company, *model.CompanyVendor) {
	t.Helper()

	company := model.Company{Name: companyName, ContactEmail: "owner@" + strings.ToLower(companyName) + ".test"}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seeding company: %v", err)
	}
	cycle := model.ReportingCycle{CompanyID: company.ID, Year: 2026}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("seeding cycle: %v", err)
	}
	vendor := model.Vendor{CompanyName: vendorName, ContactEmail: vendorEmail, Country: "Canada"}
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("seeding vendor: %v", err)
	}
	companyVendor := model.CompanyVendor{
		CycleID:            cycle.ID,
		VendorID:           vendor.ID,
		RiskStatus:         model.RiskLow,
		VerificationStatus: model.VerificationPending,
	}
	if err := db.Create(&companyVendor).Error; err != nil {
		t.Fatalf("seeding company vendor: %v", err)
	}
	companyVendor.Vendor = vendor
	companyVendor.Cycle = cycle
	return &company, &companyVendor
}

// fakeMailer records sent messages and can be told to fail per recipient
type fakeMailer struct {
	sent   []mailer.Message
	failTo map[string]bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failTo: map[string]bool{}}
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.failTo[msg.To] {
		return &mailDeliveryError{to: msg.To}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type mailDeliveryError struct{ to string }

func (e *mailDeliveryError) Error() string { return "delivery to " + e.to + " refused" }

var _ mailer.Mailer = (*fakeMailer)(nil)

// assertStatus is a shorthand for recorder status checks
func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected HTTP %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
