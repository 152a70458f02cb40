package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "campusmatch-service"
	userIDKey     = "user_id"
	anonIDClaim   = "anon_id"
	bearerPrefix  = "Bearer "
	queryTokenKey = "token"
)

var errMissingToken = errors.New("authorization token missing")

// generateJWT генерує JWT з анонімним ID
func (h *Handler) generateJWT(anonID string) (string, error) {
	claims := jwt.MapClaims{
		anonIDClaim: anonID,
		"exp":       time.Now().Add(h.Config.TokenTTL).Unix(),
		"iss":       tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.Config.JWTSecret)
}

// validateAndGetAnonID parses tokenString and returns the anon id it carries.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return h.Config.JWTSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	anonID, _ := claims[anonIDClaim].(string)
	if anonID == "" {
		return "", fmt.Errorf("token has no %s claim", anonIDClaim)
	}
	return anonID, nil
}

// GetAnonID створює AnonID та повертає JWT
func (h *Handler) GetAnonID(c *gin.Context) {
	anonUUID, err := uuid.NewRandom()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	anonID := anonUUID.String()

	token, err := h.generateJWT(anonID)
	if err != nil {
		logrus.WithError(err).Error("GetAnonID: failed to sign token")
		h.failure(c, http.StatusInternalServerError, "server.error", nil)
		return
	}

	h.success(c, "ok", gin.H{"token": token, "anon_id": anonID})
}

// extractToken reads a Bearer token, or the token query parameter that
// browsers use for websocket upgrades.
func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, bearerPrefix) {
			return "", jwt.ErrTokenMalformed
		}
		return strings.TrimSpace(header[len(bearerPrefix):]), nil
	}
	if token := c.Query(queryTokenKey); token != "" {
		return token, nil
	}
	return "", errMissingToken
}

// Auth validates the identity token and stores the anon id under "user_id".
func (h *Handler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: no usable token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Message: "Authorization token missing"})
			return
		}
		anonID, err := h.validateAndGetAnonID(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Message: "Invalid token or expired"})
			return
		}
		c.Set(userIDKey, anonID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
