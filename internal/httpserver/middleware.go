package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	identityKey     = "identity"
)

// Authenticator resolves a bearer token to the caller it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("requestID", c.GetString(requestIDKey)),
		)
	}
}

// authenticate stores the caller identity when a valid bearer token is sent.
// With required set, requests without one are rejected.
func authenticate(auth Authenticator, logger *zap.Logger, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if required {
				abortMessage(c, http.StatusUnauthorized, "not authorized, no token")
				return
			}
			c.Next()
			return
		}
		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if required {
				writeError(c, logger, err)
				return
			}
			c.Next()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caller(c).IsAdmin() {
			abortMessage(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// caller returns the identity set by authenticate, or the zero identity.
func caller(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.Identity{}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
