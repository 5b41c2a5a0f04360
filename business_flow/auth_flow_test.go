package businessflow

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/services"
	"github.com/amirphl/ring-crm/models"
	testingutil "github.com/amirphl/ring-crm/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-key-for-jwt-signing-32-chars"

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	svc, err := services.NewTokenService(time.Hour, 24*time.Hour, "ring-crm-test", "ring-crm-test", false, "", "", testJWTSecret, services.NewMemoryKeyStore(nil))
	require.NoError(t, err)
	return svc
}

func TestSignupFlow(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	tokens := newTestTokenService(t)
	flow := NewSignupFlow(env.Users, env.Audit, tokens, time.Hour, bcrypt.MinCost, env.DB.DB)

	resp, err := flow.Signup(ctx, &dto.SignupRequest{Name: " Priya ", Email: "Priya@Example.com", Password: "secret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "priya@example.com", resp.User.Email)
	assert.Equal(t, "Priya", resp.User.Name)
	assert.False(t, resp.User.IsAdmin)

	claims, err := tokens.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = flow.Signup(ctx, &dto.SignupRequest{Name: "Again", Email: "PRIYA@example.com", Password: "secret1"}, nil)
	assert.True(t, IsUserAlreadyExists(err))

	_, err = flow.Signup(ctx, &dto.SignupRequest{Name: "Short", Email: "short@example.com", Password: "12345"}, nil)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = flow.Signup(ctx, &dto.SignupRequest{Name: "  ", Email: "blank@example.com", Password: "secret1"}, nil)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestLoginFlow(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	tokens := newTestTokenService(t)
	flow := NewLoginFlow(env.Users, env.Audit, tokens, time.Hour)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)

	t.Run("wrong password is audited against the user", func(t *testing.T) {
		_, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "nope"}, nil)
		assert.True(t, IsInvalidCredentials(err))

		audits, err := env.Audit.ListByUser(ctx, user.ID, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, audits)
		assert.Equal(t, models.AuditActionLoginFailed, audits[0].Action)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := flow.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: "whatever"}, nil)
		assert.True(t, IsInvalidCredentials(err))
	})

	resp, err := flow.Login(ctx, &dto.LoginRequest{Email: strings.ToUpper(user.Email), Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	stored, err := env.Users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	refreshed, err := flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: refreshed.Token})
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	require.NoError(t, flow.Logout(ctx, user.ID, refreshed.Token, nil))
	_, err = tokens.ValidateToken(ctx, refreshed.Token)
	assert.ErrorIs(t, err, services.ErrTokenRevoked)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	provider := &recordingEmailProvider{}
	flow := NewPasswordResetFlow(env.Users, env.Audit, services.NewNotificationService(provider),
		"https://crm.example.com/", bcrypt.MinCost, env.DB.DB, log.New(&strings.Builder{}, "", 0))

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)

	err = flow.RequestReset(ctx, &dto.RequestPasswordResetRequest{Email: "ghost@example.com"}, nil)
	assert.True(t, IsUserNotFound(err))

	require.NoError(t, flow.RequestReset(ctx, &dto.RequestPasswordResetRequest{Email: user.Email}, nil))

	stored, err := env.Users.ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	token := *stored.ResetToken
	assert.Len(t, token, 64)

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.Email, sent[0].To)
	assert.Contains(t, sent[0].Body, "https://crm.example.com/reset-password/"+token)

	err = flow.ResetPassword(ctx, token, &dto.ResetPasswordRequest{Password: "123"}, nil)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	err = flow.ResetPassword(ctx, "not-a-token", &dto.ResetPasswordRequest{Password: "brandnew"}, nil)
	assert.True(t, IsResetTokenInvalid(err))

	require.NoError(t, flow.ResetPassword(ctx, token, &dto.ResetPasswordRequest{Password: "brandnew"}, nil))

	_, err = authenticate(ctx, env.Users, user.Email, "brandnew")
	assert.NoError(t, err)

	// tokens are single-use
	err = flow.ResetPassword(ctx, token, &dto.ResetPasswordRequest{Password: "another1"}, nil)
	assert.True(t, IsResetTokenInvalid(err))

	t.Run("mail failure keeps the token", func(t *testing.T) {
		provider.setFailure(errSMTPDown)
		defer provider.setFailure(nil)

		err := flow.RequestReset(ctx, &dto.RequestPasswordResetRequest{Email: user.Email}, nil)
		assert.ErrorIs(t, err, errSMTPDown)

		again, err := env.Users.ByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotNil(t, again.ResetToken)
	})
}

func TestProfileFlow(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	flow := NewProfileFlow(env.Users)

	user, err := env.Fixtures.CreateTestUser()
	require.NoError(t, err)

	profile, err := flow.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, models.PlanFree, profile.SubscriptionPlan)
	assert.False(t, profile.SubscriptionActive)

	_, err = flow.GetProfile(ctx, 424242)
	assert.True(t, IsUserNotFound(err))
}
