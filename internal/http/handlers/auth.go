package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/gymlog/internal/auth"
	"github.com/geocoder89/gymlog/internal/domain/user"
	"github.com/geocoder89/gymlog/internal/http/middlewares"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionStateKey = "oauth_state"

type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.Identity, error)
}

type UserService interface {
	Current(ctx context.Context, uid string) (user.User, error)
	SyncIdentity(ctx context.Context, in user.UpsertUser) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, time.Time, error)
}

type LoginRecorder interface {
	IncLogin(result string)
}

type AuthHandler struct {
	provider           IdentityProvider
	users              UserService
	tokens             TokenIssuer
	logins             LoginRecorder
	postLogoutRedirect string
}

func NewAuthHandler(provider IdentityProvider, users UserService, tokens TokenIssuer, logins LoginRecorder, postLogoutRedirect string) *AuthHandler {
	if postLogoutRedirect == "" {
		postLogoutRedirect = "/"
	}

	return &AuthHandler{
		provider:           provider,
		users:              users,
		tokens:             tokens,
		logins:             logins,
		postLogoutRedirect: postLogoutRedirect,
	}
}

// Login starts the authorization code flow.
func (h *AuthHandler) Login(ctx *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	session := sessions.Default(ctx)
	session.Set(sessionStateKey, state)

	if err := session.Save(); err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	ctx.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the login: the identity record is upserted on every successful login.
func (h *AuthHandler) Callback(ctx *gin.Context) {
	session := sessions.Default(ctx)

	expected, _ := session.Get(sessionStateKey).(string)
	session.Delete(sessionStateKey)

	if expected == "" || ctx.Query("state") != expected {
		h.recordLogin("state_mismatch")
		_ = session.Save()
		RespondBadRequest(ctx, "Invalid state parameter", nil)
		return
	}

	code := ctx.Query("code")
	if code == "" {
		h.recordLogin("exchange_failed")
		_ = session.Save()
		RespondBadRequest(ctx, "Missing authorization code", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	identity, err := h.provider.Exchange(cctx, code)
	if err != nil {
		h.recordLogin("exchange_failed")
		slog.Default().WarnContext(ctx.Request.Context(), "oidc exchange failed", "err", err)
		_ = session.Save()
		RespondUnauthorized(ctx, "login_failed", "Could not verify login")
		return
	}

	u, err := h.users.SyncIdentity(cctx, user.UpsertUser{
		ID:              identity.Subject,
		Email:           strPtr(identity.Email),
		FirstName:       strPtr(identity.FirstName),
		LastName:        strPtr(identity.LastName),
		ProfileImageURL: strPtr(identity.ProfileImageURL),
	})
	if err != nil {
		h.recordLogin("upsert_failed")
		// the consumed state must not survive a failed login
		_ = session.Save()
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already linked to another account.")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "upsert user failed", "err", err, "subject", identity.Subject)
		RespondInternal(ctx, "Could not complete login")
		return
	}

	// fresh session values on every login
	session.Clear()
	session.Set(middlewares.SessionUserIDKey, u.ID)
	if u.Email != nil {
		session.Set(middlewares.SessionEmailKey, *u.Email)
	}

	if err := session.Save(); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.recordLogin("ok")
	ctx.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	session := sessions.Default(ctx)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()

	ctx.Redirect(http.StatusFound, h.postLogoutRedirect)
}

func (h *AuthHandler) CurrentUser(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	u, err := h.users.Current(cctx, uid)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "fetch user failed", "err", err)
		RespondInternal(ctx, "Failed to fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// IssueToken hands a bearer access token to a logged-in browser session for API clients.
func (h *AuthHandler) IssueToken(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	token, expiresAt, err := h.tokens.GenerateAccessToken(uid, middlewares.EmailFromContext(ctx))
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresAt":   expiresAt,
	})
}

func (h *AuthHandler) recordLogin(result string) {
	if h.logins != nil {
		h.logins.IncLogin(result)
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
