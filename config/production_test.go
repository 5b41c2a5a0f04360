package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "crm", User: "postgres"},
		Server:   ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Security: SecurityConfig{PasswordMinLength: 6, BcryptCost: 10},
		JWT: JWTConfig{
			SecretKey:       "0123456789abcdef0123456789abcdef",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: time.Hour,
			Issuer:          "ring-crm",
			Audience:        "ring-crm-api",
		},
		Reminder: ReminderConfig{
			ScanWindow:          30 * time.Minute,
			DispatchConcurrency: 2,
			IdempotencyTTL:      45 * time.Minute,
		},
		Scheduler: SchedulerConfig{Enabled: true, ReminderInterval: time.Minute},
	}
}

func TestValidateProductionConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateProductionConfig(validConfig()))
}

func TestValidateProductionConfig_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.SecretKey = "short"
	cfg.Reminder.DispatchConcurrency = 0
	cfg.Admin.Email = "admin@example.com"

	err := ValidateProductionConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	assert.Contains(t, err.Error(), "REMINDER_DISPATCH_CONCURRENCY")
	assert.Contains(t, err.Error(), "ADMIN_EMAIL and ADMIN_PASSWORD")
}

func TestValidateProductionConfig_IdempotencyTTLShorterThanWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Reminder.IdempotencyTTL = 10 * time.Minute

	err := ValidateProductionConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMINDER_IDEMPOTENCY_TTL")
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nCRM_TEST_A=\"quoted\"\nexport CRM_TEST_B=plain\nCRM_TEST_C=from-file\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CRM_TEST_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("CRM_TEST_A")
		os.Unsetenv("CRM_TEST_B")
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "quoted", os.Getenv("CRM_TEST_A"))
	assert.Equal(t, "plain", os.Getenv("CRM_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("CRM_TEST_C"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CRM_TEST_INT", "42")
	t.Setenv("CRM_TEST_BAD_INT", "x")
	t.Setenv("CRM_TEST_DUR", "90s")
	t.Setenv("CRM_TEST_SLICE", " a, ,b ")

	assert.Equal(t, 42, getEnvInt("CRM_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("CRM_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, getEnvDuration("CRM_TEST_DUR", time.Second))
	assert.Equal(t, []string{"a", "b"}, getEnvStringSlice("CRM_TEST_SLICE", nil))
	assert.True(t, getEnvBool("CRM_TEST_MISSING_BOOL", true))
}
