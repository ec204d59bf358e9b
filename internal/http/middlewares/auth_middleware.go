package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/gymlog/internal/actorctx"
	"github.com/geocoder89/gymlog/internal/auth"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth admits a request carrying either a login session or a bearer access token.
// The session wins when both are present.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, email, ok := sessionIdentity(c); ok {
			setIdentity(c, uid, email, "session")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Authentication required")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" || m.jwt == nil {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		setIdentity(c, claims.UserID(), claims.Email, "bearer")
		c.Next()
	}
}

// RequireSession admits only requests authenticated by the login session cookie.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, email, ok := sessionIdentity(c)
		if !ok {
			abortUnauthorized(c, "Login session required")
			return
		}

		setIdentity(c, uid, email, "session")
		c.Next()
	}
}

func sessionIdentity(c *gin.Context) (uid, email string, ok bool) {
	// sessions middleware is optional (bearer-only deployments and tests)
	if _, mounted := c.Get(sessions.DefaultKey); !mounted {
		return "", "", false
	}

	s := sessions.Default(c)
	uid, _ = s.Get(SessionUserIDKey).(string)
	email, _ = s.Get(SessionEmailKey).(string)

	return uid, email, uid != ""
}

func setIdentity(c *gin.Context, uid, email, via string) {
	c.Set(ctxUserIDKey, uid)
	c.Set(ctxEmailKey, email)
	c.Set(ctxAuthVia, via)

	c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), uid))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func EmailFromContext(c *gin.Context) string {
	return c.GetString(ctxEmailKey)
}

// AuthMethodFromContext reports "session" or "bearer".
func AuthMethodFromContext(c *gin.Context) string {
	return c.GetString(ctxAuthVia)
}
