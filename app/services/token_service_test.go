package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t testing.TB) *TokenServiceImpl {
	svc, err := NewTokenService(15*time.Minute, 7*24*time.Hour, "test-issuer", "test-audience", false, "", "", testSecret, nil)
	require.NoError(t, err)
	return svc.(*TokenServiceImpl)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "rsa without keys", useRSAKeys: true, expectError: true},
		{name: "rsa with garbage keys", useRSAKeys: true, privateKey: "nope", publicKey: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey, nil)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestTokenClaimsStructure(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()

	accessToken, refreshToken, err := service.GenerateTokens(456, true)
	require.NoError(t, err)

	accessClaims, err := service.ValidateToken(ctx, accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(456), accessClaims.UserID)
	assert.True(t, accessClaims.IsAdmin)
	assert.Equal(t, TokenTypeAccess, accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	refreshClaims, err := service.ValidateToken(ctx, refreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
	assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
}

func TestTokenExpiration(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return start }

	accessToken, refreshToken, err := service.GenerateTokens(123, false)
	require.NoError(t, err)

	_, err = service.ValidateToken(ctx, accessToken)
	require.NoError(t, err)

	service.now = func() time.Time { return start.Add(16 * time.Minute) }
	claims, err := service.ValidateToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, claims)

	// refresh token still has days left
	_, _, err = service.RefreshToken(ctx, refreshToken)
	assert.NoError(t, err)

	service.now = func() time.Time { return start.Add(8 * 24 * time.Hour) }
	_, _, err = service.RefreshToken(ctx, refreshToken)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()

	accessToken, refreshToken, err := service.GenerateTokens(7, false)
	require.NoError(t, err)

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, _, err := service.RefreshToken(ctx, accessToken)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("refresh rotates and revokes the old token", func(t *testing.T) {
		newAccess, newRefresh, err := service.RefreshToken(ctx, refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEqual(t, refreshToken, newRefresh)

		_, _, err = service.RefreshToken(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestRevokeToken(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()

	accessToken, _, err := service.GenerateTokens(99, false)
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(ctx, accessToken))

	claims, err := service.ValidateToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, claims)

	// revoking twice is harmless
	assert.NoError(t, service.RevokeToken(ctx, accessToken))
	assert.Error(t, service.RevokeToken(ctx, "garbage"))
}

func TestTokenSecurity(t *testing.T) {
	service1, err := NewTokenService(15*time.Minute, time.Hour, "issuer1", "audience1", false, "", "", "test-secret-key-1-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)
	service2, err := NewTokenService(15*time.Minute, time.Hour, "issuer2", "audience2", false, "", "", "test-secret-key-2-for-jwt-signing-32-chars", nil)
	require.NoError(t, err)
	ctx := context.Background()

	token1, _, err := service1.GenerateTokens(123, false)
	require.NoError(t, err)
	token2, _, err := service2.GenerateTokens(123, false)
	require.NoError(t, err)

	_, err = service1.ValidateToken(ctx, token2)
	assert.Error(t, err)
	_, err = service2.ValidateToken(ctx, token1)
	assert.Error(t, err)
}

func TestTokenRevocationSharedThroughStore(t *testing.T) {
	store := NewMemoryKeyStore(nil)
	a, err := NewTokenService(time.Hour, time.Hour, "iss", "aud", false, "", "", testSecret, store)
	require.NoError(t, err)
	b, err := NewTokenService(time.Hour, time.Hour, "iss", "aud", false, "", "", testSecret, store)
	require.NoError(t, err)
	ctx := context.Background()

	token, _, err := a.GenerateTokens(1, false)
	require.NoError(t, err)
	require.NoError(t, a.RevokeToken(ctx, token))

	_, err = b.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := createTestTokenService(t)

	const numGoroutines = 10
	tokens := make(chan string, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(userID uint) {
			accessToken, _, err := service.GenerateTokens(userID, false)
			if err != nil {
				errs <- err
				return
			}
			tokens <- accessToken
		}(uint(i + 1))
	}

	generated := make(map[string]bool)
	for i := 0; i < numGoroutines; i++ {
		select {
		case token := <-tokens:
			assert.False(t, generated[token], "Duplicate token generated")
			generated[token] = true
		case err := <-errs:
			t.Errorf("Error generating token: %v", err)
		}
	}

	assert.Len(t, generated, numGoroutines)
}

func TestTokenValidationEdgeCases(t *testing.T) {
	service := createTestTokenService(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "single character", token: "a"},
		{name: "non-JWT string", token: "this is not a jwt token"},
		{name: "JWT with wrong number of parts", token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoxMjN9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.Nil(t, claims)
		})
	}
}

func BenchmarkValidateToken(b *testing.B) {
	service := createTestTokenService(b)
	token, _, err := service.GenerateTokens(123, false)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := service.ValidateToken(context.Background(), token)
		require.NoError(b, err)
	}
}
