package admin

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marmos91/botkit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func newTestJWT(t *testing.T, cfg JWTConfig) *JWTService {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	s, err := NewJWTService(cfg)
	require.NoError(t, err)
	return s
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short"})
	assert.ErrorIs(t, err, ErrInvalidSecretLength)

	_, err = NewJWTService(JWTConfig{})
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestJWTDefaults(t *testing.T) {
	s := newTestJWT(t, JWTConfig{})
	assert.Equal(t, "botkit", s.config.Issuer)
	assert.Equal(t, 15*time.Minute, s.AccessTokenDuration())
	assert.Equal(t, 7*24*time.Hour, s.config.RefreshTokenDuration)
}

func TestTokenPairRoundTrip(t *testing.T) {
	s := newTestJWT(t, JWTConfig{})
	admin := &models.Admin{ID: 3, Username: "root"}

	pair, err := s.GenerateTokenPair(admin)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := s.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.AdminID)
	assert.Equal(t, "root", claims.Username)
	assert.Equal(t, "3", claims.Subject)

	refresh, err := s.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refresh.IsRefreshToken())

	_, err = s.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
	_, err = s.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateTokenFailures(t *testing.T) {
	s := newTestJWT(t, JWTConfig{AccessTokenDuration: -time.Minute})
	pair, err := s.GenerateTokenPair(&models.Admin{ID: 1, Username: "root"})
	require.NoError(t, err)

	_, err = s.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := newTestJWT(t, JWTConfig{Secret: "another-secret-key-that-is-32-chars"})
	fresh, err := newTestJWT(t, JWTConfig{}).GenerateTokenPair(&models.Admin{ID: 1, Username: "root"})
	require.NoError(t, err)
	_, err = other.ValidateToken(fresh.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Foreign issuer with the same key.
	foreign := newTestJWT(t, JWTConfig{Issuer: "someone-else"})
	pair, err = foreign.GenerateTokenPair(&models.Admin{ID: 1, Username: "root"})
	require.NoError(t, err)
	_, err = newTestJWT(t, JWTConfig{}).ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsNoneAlgorithm(t *testing.T) {
	s := newTestJWT(t, JWTConfig{})
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "botkit",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username:  "root",
		TokenType: TokenTypeAccess,
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
