package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(accessTTL, refreshTTL, "subaruffles-test", "subaruffles-test", false, "", "", "test-secret-key-that-is-long-enough-0123456789")
	require.NoError(t, err)
	return svc
}

func TestTokenService(t *testing.T) {
	t.Run("GenerateAndValidate", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

		access, refresh, err := svc.GenerateAdminTokens(42, "operator")
		require.NoError(t, err)
		require.NotEmpty(t, access)
		require.NotEmpty(t, refresh)
		assert.NotEqual(t, access, refresh)

		claims, err := svc.ValidateAdminToken(access)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.AdminID)
		assert.Equal(t, "operator", claims.Username)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

		refreshClaims, err := svc.ValidateAdminToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
		assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
	})

	t.Run("RefreshIssuesNewPair", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

		_, refresh, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshAdminToken(refresh)
		require.NoError(t, err)

		claims, err := svc.ValidateAdminToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEqual(t, refresh, newRefresh)
	})

	t.Run("AccessTokenCannotRefresh", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

		access, _, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		_, _, err = svc.RefreshAdminToken(access)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a refresh token")
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		svc := newTestTokenService(t, -time.Minute, 24*time.Hour)

		access, _, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(access)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Revocation", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

		access, _, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		assert.False(t, svc.IsTokenRevoked(access))
		require.NoError(t, svc.RevokeToken(access))
		assert.True(t, svc.IsTokenRevoked(access))

		_, err = svc.ValidateAdminToken(access)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("TamperedToken", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

		access, _, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(access + "x")
		assert.ErrorIs(t, err, ErrTokenInvalid)

		_, err = svc.ValidateAdminToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)
		other, err := NewTokenService(15*time.Minute, 24*time.Hour, "subaruffles-test", "subaruffles-test", false, "", "", "a-completely-different-secret-key-9876543210")
		require.NoError(t, err)

		access, _, err := svc.GenerateAdminTokens(7, "operator")
		require.NoError(t, err)

		_, err = other.ValidateAdminToken(access)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("MissingSecretRejected", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", false, "", "", "")
		assert.Error(t, err)
	})
}
