package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

const (
	userIDKey   = "user_id"
	identityKey = "identity"
)

// RequestContext copies request metadata onto the request context for service-level audit logs
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, services.RequestIDKey, utils.GetRequestID(c))
		ctx = context.WithValue(ctx, services.ClientIPKey, c.ClientIP())
		ctx = context.WithValue(ctx, services.UserAgentKey, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ProfileEnsurer provisions the local profile of an authenticated identity
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identity *auth.Identity) (*models.Profile, error)
}

// RequireAuth rejects requests without a valid bearer token issued by the auth provider.
// A verified identity gets its profile provisioned; a provisioning failure is logged and
// the request continues.
func RequireAuth(verifier auth.TokenVerifier, profiles ProfileEnsurer, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated", Code: "unauthorized"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			utils.GetLoggerFromContext(c, logger).Warn("Rejected bearer token", "error", err, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid or expired token", Code: "unauthorized"})
			return
		}

		if profiles != nil {
			if _, err := profiles.EnsureProfile(c.Request.Context(), identity); err != nil {
				utils.GetLoggerFromContext(c, logger).Warn("Profile provisioning failed", "user_id", identity.UserID, "error", err)
			}
		}

		c.Set(userIDKey, identity.UserID)
		c.Set(identityKey, identity)
		c.Next()
	}
}

// currentIdentity returns the verified identity, writing a 401 when there is none
func currentIdentity(c *gin.Context) (*auth.Identity, bool) {
	if value, exists := c.Get(identityKey); exists {
		if identity, ok := value.(*auth.Identity); ok && identity != nil {
			return identity, true
		}
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated", Code: "unauthorized"})
	return nil, false
}

// currentUserID returns the authenticated user, writing a 401 when there is none
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated", Code: "unauthorized"})
		return "", false
	}
	return userID, true
}
