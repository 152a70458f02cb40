package handler

import (
	"campusmatch/backend/internal/config"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	h := &Handler{Config: &config.Config{JWTSecret: []byte("s1"), TokenTTL: time.Hour}}

	token, err := h.generateJWT("anon-1")
	require.NoError(t, err)

	id, err := h.validateAndGetAnonID(token)
	require.NoError(t, err)
	assert.Equal(t, "anon-1", id)

	other := &Handler{Config: &config.Config{JWTSecret: []byte("s2"), TokenTTL: time.Hour}}
	_, err = other.validateAndGetAnonID(token)
	assert.Error(t, err, "a token signed with another secret is rejected")
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	h := &Handler{Config: &config.Config{JWTSecret: []byte("s1"), TokenTTL: time.Hour}}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		anonIDClaim: "anon-1",
		"exp":       time.Now().Add(-time.Minute).Unix(),
		"iss":       tokenIssuer,
	})
	signed, err := expired.SignedString(h.Config.JWTSecret)
	require.NoError(t, err)
	_, err = h.validateAndGetAnonID(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		anonIDClaim: "anon-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"iss":       "someone-else",
	})
	signed, err = foreign.SignedString(h.Config.JWTSecret)
	require.NoError(t, err)
	_, err = h.validateAndGetAnonID(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
