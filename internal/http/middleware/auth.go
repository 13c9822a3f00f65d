// Firebase auth middleware: verifies the bearer token and stashes the
// caller's identity on the request context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wasla/internal/infra"
	"wasla/internal/types"
)

const (
	ctxKeyUID  = "auth.uid"
	ctxKeyRole = "auth.role"
)

// Auth verifies the Authorization header and aborts with 401 when the token
// is missing or invalid. The role claim defaults to CUSTOMER: accounts are
// customers unless provisioning granted them more.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxKeyUID, token.UID)
		c.Set(ctxKeyRole, string(roleFromClaims(token.Claims)))
		c.Next()
	}
}

func roleFromClaims(claims map[string]interface{}) types.Role {
	raw, _ := claims["role"].(string)
	switch types.Role(strings.ToUpper(raw)) {
	case types.RoleAdmin:
		return types.RoleAdmin
	case types.RoleOperations:
		return types.RoleOperations
	case types.RoleDriver:
		return types.RoleDriver
	default:
		return types.RoleCustomer
	}
}

// CallerUID returns the authenticated user's id, empty when unauthenticated.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

// CallerRole returns the authenticated user's role.
func CallerRole(c *gin.Context) types.Role {
	return types.Role(c.GetString(ctxKeyRole))
}

// CallerActor bundles uid and role for the service layer.
func CallerActor(c *gin.Context) types.Actor {
	return types.Actor{ID: types.ID(CallerUID(c)), Role: CallerRole(c)}
}

// RequireStaff aborts with 403 unless the caller holds a back-office role.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerRole(c).Staff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff role required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the caller is an admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != types.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}
