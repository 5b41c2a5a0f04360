package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/handlers"
	"github.com/amirphl/ring-crm/app/middleware"
	"github.com/amirphl/ring-crm/app/services"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/amirphl/ring-crm/config"
	"github.com/amirphl/ring-crm/repository"
	testingutil "github.com/amirphl/ring-crm/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "router-test-secret-key-0123456789abcdef"

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{BodyLimit: 4 * 1024 * 1024},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"*"},
			AllowedMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AuthRateLimit:   1000,
			GlobalRateLimit: 1000,
			RateLimitWindow: time.Minute,
			BcryptCost:      bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:       testSecret,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			Issuer:          "ring-crm",
			Audience:        "ring-crm-api",
		},
		Reminder: config.ReminderConfig{
			ScanWindow:          30 * time.Minute,
			DispatchConcurrency: 2,
			DispatchTimeout:     5 * time.Second,
			IdempotencyTTL:      time.Hour,
			AppBaseURL:          "http://localhost:3000",
		},
		Captcha:    config.CaptchaConfig{TTL: time.Minute, AngleTolerance: 10},
		Deployment: config.DeploymentConfig{Environment: "test", Version: "test"},
	}
}

// newTestApp wires the full handler stack over a private SQLite database
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })
	db := testDB.DB

	cfg := testConfig()
	logger := log.New(io.Discard, "", 0)
	keys := services.NewMemoryKeyStore(nil)

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, false, "", "", cfg.JWT.SecretKey, keys)
	require.NoError(t, err)
	captchaSvc, err := services.NewCaptchaServiceRotate(keys, cfg.Captcha.TTL, cfg.Captcha.AngleTolerance, 0)
	require.NoError(t, err)
	notifications := services.NewNotificationService(services.NewMockEmailProvider(logger))

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	scheduledCallRepo := repository.NewScheduledCallRepository(db)
	cost := cfg.Security.BcryptCost

	reminderFlow := businessflow.NewReminderFlow(
		scheduledCallRepo,
		auditRepo,
		services.NewReminderDispatcher(notifications, keys, cfg.Reminder.IdempotencyTTL, cfg.Reminder.DispatchTimeout),
		cfg.Reminder.ScanWindow,
		cfg.Reminder.DispatchConcurrency,
		logger,
	)

	r := NewFiberRouter(cfg, Handlers{
		Auth: handlers.NewAuthHandler(
			businessflow.NewSignupFlow(userRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL, cost, db),
			businessflow.NewLoginFlow(userRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL),
			businessflow.NewPasswordResetFlow(userRepo, auditRepo, notifications, cfg.Reminder.AppBaseURL, cost, db, logger),
			logger,
		),
		Profile:       handlers.NewProfileHandler(businessflow.NewProfileFlow(userRepo), logger),
		Lead:          handlers.NewLeadHandler(businessflow.NewLeadFlow(leadRepo, auditRepo, db), logger),
		Contact:       handlers.NewContactHandler(businessflow.NewContactFlow(repository.NewContactRepository(db), db), logger),
		ScheduledCall: handlers.NewScheduledCallHandler(businessflow.NewScheduledCallFlow(scheduledCallRepo, leadRepo), reminderFlow, logger),
		CallHistory: handlers.NewCallHistoryHandler(
			businessflow.NewCallHistoryFlow(repository.NewCallHistoryRepository(db), leadRepo, scheduledCallRepo),
			logger,
		),
		Payment:   handlers.NewPaymentHandler(businessflow.NewPaymentFlow(repository.NewPaymentRepository(db), userRepo, auditRepo, db, cfg.Payment), logger),
		AdminAuth: handlers.NewAdminAuthHandler(businessflow.NewAdminAuthFlow(userRepo, auditRepo, tokenService, captchaSvc, cfg.JWT.AccessTokenTTL), logger),
		AdminUser: handlers.NewAdminUserHandler(businessflow.NewAdminUserFlow(userRepo, auditRepo, cost, db), logger),
	}, middleware.NewAuthMiddleware(tokenService))
	r.SetupRoutes()

	return r.GetApp()
}

type apiResult struct {
	Status  int
	Success bool
	Code    string
	Data    json.RawMessage
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) apiResult {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return apiResult{Status: resp.StatusCode, Success: env.Success, Code: env.Error.Code, Data: env.Data}
}

func signup(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	res := call(t, app, http.MethodPost, "/api/v1/auth/signup", "", dto.SignupRequest{
		Name: "Sales Rep", Email: email, Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, res.Status)

	var auth dto.AuthResponse
	require.NoError(t, json.Unmarshal(res.Data, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func createLead(t *testing.T, app *fiber.App, token, name, phone string) dto.LeadDTO {
	t.Helper()
	res := call(t, app, http.MethodPost, "/api/v1/leads", token, dto.CreateLeadRequest{Name: name, Phone: phone})
	require.Equal(t, http.StatusCreated, res.Status)

	var lead dto.LeadDTO
	require.NoError(t, json.Unmarshal(res.Data, &lead))
	return lead
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	res := call(t, app, http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Success)
	assert.Contains(t, string(res.Data), `"status":"ok"`)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	res := call(t, app, http.MethodGet, "/api/v1/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "NOT_FOUND", res.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	app := newTestApp(t)

	res := call(t, app, http.MethodGet, "/api/v1/leads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", res.Code)

	res = call(t, app, http.MethodGet, "/api/v1/leads", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "TOKEN_INVALID", res.Code)
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t)

	res := call(t, app, http.MethodPost, "/api/v1/auth/signup", "", dto.SignupRequest{Name: "X", Email: "bad", Password: "1"})

	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "rep@example.com")

	res := call(t, app, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, res.Status)

	res = call(t, app, http.MethodGet, "/api/v1/leads", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "TOKEN_REVOKED", res.Code)
}

func TestLeads_ScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	alice := signup(t, app, "alice@example.com")
	bob := signup(t, app, "bob@example.com")

	lead := createLead(t, app, alice, "Acme Traders", "+91 98765 43210")

	res := call(t, app, http.MethodGet, "/api/v1/leads/"+itoa(lead.ID), alice, nil)
	assert.Equal(t, http.StatusOK, res.Status)

	res = call(t, app, http.MethodGet, "/api/v1/leads/"+itoa(lead.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = call(t, app, http.MethodGet, "/api/v1/leads", bob, nil)
	require.Equal(t, http.StatusOK, res.Status)
	var list dto.ListLeadsResponse
	require.NoError(t, json.Unmarshal(res.Data, &list))
	assert.Zero(t, list.Total)
}

func TestNextLead(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "rep@example.com")
	first := createLead(t, app, token, "First", "5550100001")
	second := createLead(t, app, token, "Second", "5550100002")

	res := call(t, app, http.MethodGet, "/api/v1/leads/next", token, nil)
	require.Equal(t, http.StatusOK, res.Status)
	var next dto.NextLeadResponse
	require.NoError(t, json.Unmarshal(res.Data, &next))
	assert.Equal(t, first.ID, next.Lead.ID)

	res = call(t, app, http.MethodGet, "/api/v1/leads/next?last_lead_id="+itoa(first.ID), token, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.NoError(t, json.Unmarshal(res.Data, &next))
	assert.Equal(t, second.ID, next.Lead.ID)

	res = call(t, app, http.MethodGet, "/api/v1/leads/next?last_lead_id="+itoa(second.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = call(t, app, http.MethodGet, "/api/v1/leads/next?last_lead_id=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestCallTracking(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "rep@example.com")
	lead := createLead(t, app, token, "Acme", "5550100001")

	res := call(t, app, http.MethodPost, "/api/v1/call-history/initiate", token, dto.InitiateCallRequest{
		LeadID: lead.ID, PhoneNumber: lead.Phone, DeviceInfo: "test",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	var record dto.CallHistoryDTO
	require.NoError(t, json.Unmarshal(res.Data, &record))
	assert.Equal(t, "in-progress", record.Outcome)

	outcome, notes, secs := "successful", "booked demo", 42
	res = call(t, app, http.MethodPut, "/api/v1/call-history/"+itoa(record.ID)+"/status", token, dto.UpdateCallStatusRequest{
		Outcome: &outcome, Notes: &notes, DurationSeconds: &secs,
	})
	require.Equal(t, http.StatusOK, res.Status)
	require.NoError(t, json.Unmarshal(res.Data, &record))
	assert.Equal(t, "successful", record.Outcome)
	assert.Equal(t, 42, record.DurationSeconds)

	bad := "sleeping"
	res = call(t, app, http.MethodPut, "/api/v1/call-history/"+itoa(record.ID)+"/status", token, dto.UpdateCallStatusRequest{Outcome: &bad})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	other := signup(t, app, "other@example.com")
	res = call(t, app, http.MethodPut, "/api/v1/call-history/"+itoa(record.ID)+"/status", other, dto.UpdateCallStatusRequest{Outcome: &outcome})
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestCheckReminders_Empty(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "rep@example.com")

	res := call(t, app, http.MethodGet, "/api/v1/scheduled-calls/check-reminders", token, nil)

	require.Equal(t, http.StatusOK, res.Status)
	var resp dto.CheckRemindersResponse
	require.NoError(t, json.Unmarshal(res.Data, &resp))
	assert.Empty(t, resp.UpcomingCalls)
	assert.Empty(t, resp.ReminderResults)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "rep@example.com")

	res := call(t, app, http.MethodGet, "/api/v1/admin/users", token, nil)

	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "ADMIN_REQUIRED", res.Code)
}

func TestSwaggerHiddenOutsideDevelopment(t *testing.T) {
	app := newTestApp(t)

	res := call(t, app, http.MethodGet, "/api/v1/swagger.json", "", nil)

	assert.Equal(t, http.StatusNotFound, res.Status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
