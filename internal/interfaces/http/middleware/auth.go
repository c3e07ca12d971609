package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Gin context keys set by OperatorAuth
const (
	OperatorIDKey   = "operator_id"
	OperatorNameKey = "operator_name"
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// OperatorAuth requires a bearer token naming the operator. Paths listed in
// skip pass through untouched.
func OperatorAuth(verifier TokenVerifier, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			code := dto.ErrCodeTokenInvalid
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrCodeTokenExpired
			}
			logger.FromGin(c).Debug("operator token rejected", zap.Error(err))
			abortUnauthorized(c, code, "Invalid or expired token")
			return
		}

		operatorID, _ := claims.OperatorID()
		c.Set(OperatorIDKey, operatorID)
		c.Set(OperatorNameKey, claims.Name)

		ctx := logger.WithOperatorID(c.Request.Context(), operatorID.String())
		scoped := logger.FromContext(ctx).With(zap.String("operator_id", operatorID.String()))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, scoped))
		c.Next()
	}
}

// GetOperatorID returns the authenticated operator, if any
func GetOperatorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(OperatorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="rentledger"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
