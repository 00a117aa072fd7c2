package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "token"
	// ContextUserIDKey is the key used to store the authenticated credential ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the session role inside Gin context.
	ContextRoleKey = "role"
)

// sessionToken extracts the raw token from the request: session cookie first,
// Authorization bearer header as a fallback for non-browser callers.
func sessionToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// resolveSession verifies the request token and, when valid, stores the
// identity in the Gin context. Returns false when no valid session exists.
func resolveSession(ctx *gin.Context) bool {
	tokenString := sessionToken(ctx)
	if tokenString == "" {
		return false
	}

	if utils.IsTokenBlacklisted(tokenString) {
		return false
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return false
	}

	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextRoleKey, claims.Role)
	return true
}

// AuthRequired ensures the request carries a valid session.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !resolveSession(ctx) {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// AuthOptional resolves the session when present but never rejects the
// request. Handlers decide what an anonymous caller may do.
func AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		resolveSession(ctx)
		ctx.Next()
	}
}

// RequireRole is the single authorization gate for privileged operations.
// It implies AuthRequired.
func RequireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !resolveSession(ctx) {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
			ctx.Abort()
			return
		}
		if ctx.GetString(ContextRoleKey) != role {
			utils.Error(ctx, http.StatusForbidden, 40301, "Nemaš ovlasti.")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// RequireGM guards operations reserved for the game master.
func RequireGM() gin.HandlerFunc {
	return RequireRole(models.RoleGM)
}
