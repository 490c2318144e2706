package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-fs/shelf/pkg/fs/models"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func testUser() *models.User {
	return &models.User{
		ID:       "user-1",
		Username: "alice",
		Role:     "user",
	}
}

func TestNewServiceRejectsShortSecret(t *testing.T) {
	_, err := NewService(Config{Secret: "too-short"})
	require.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair(testUser())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Positive(t, pair.ExpiresIn)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.False(t, claims.IsAdmin())

	refreshClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenTypeEnforcement(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)
	other, err := NewService(Config{Secret: "another-secret-key-that-is-also-32-chars!"})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, err := NewService(Config{
		Secret:              testSecret,
		AccessTokenDuration: -time.Minute,
	})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminClaims(t *testing.T) {
	svc, err := NewService(Config{Secret: testSecret})
	require.NoError(t, err)

	admin := &models.User{ID: "admin-1", Username: "root", Role: "admin"}
	pair, err := svc.GenerateTokenPair(admin)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}
