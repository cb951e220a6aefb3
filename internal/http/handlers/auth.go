package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/repo/postgres"
	"github.com/taskhub/taskhub/internal/security"
)

// UserStore is the credential store: user records plus the single
// refresh-hash slot that backs the one-active-refresh-token invariant.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	SetRefreshTokenHash(ctx context.Context, id string, hash *string) error
}

type AuthHandler struct {
	users UserStore
	jwt   *auth.Manager
	cfg   config.Config
	log   *slog.Logger
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		cfg:   cfg,
		log:   log,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

var emailValidator = validator.New()

// normalizeEmail trims and lowercases before the shape check, so
// " A@Example.com " and "a@example.com" are the same account.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))

	if err := emailValidator.Var(email, "required,email"); err != nil {
		return "", false
	}

	return email, true
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := normalizeEmail(req.Email)

	if !ok {
		RespondValidationFailed(ctx, []Issue{{Path: "email", Message: "must be a valid email address"}})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password, h.cfg.BcryptCost)

	if err != nil {
		h.log.Error("hash password", "err", err)
		RespondInternal(ctx)
		return
	}

	u, err := h.users.Create(cctx, email, hash)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			RespondConflict(ctx, "Email is already registered")
			return
		}

		h.log.Error("create user", "err", err)
		RespondInternal(ctx)
		return
	}

	accessToken, ok := h.startSession(ctx, cctx, u)

	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Registration successful",
		"accessToken": accessToken,
		"user":        u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := normalizeEmail(req.Email)

	if !ok {
		RespondValidationFailed(ctx, []Issue{{Path: "email", Message: "must be a valid email address"}})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// Unknown email and wrong password produce the same response, to keep
	// account enumeration off the table.
	u, err := h.users.GetByEmail(cctx, email)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	accessToken, ok := h.startSession(ctx, cctx, u)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Login successful",
		"accessToken": accessToken,
		"user":        u,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw := h.readRefreshToken(ctx)

	if raw == "" {
		RespondUnauthorized(ctx, "Unauthorized")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnauthorized(ctx, "Unauthorized")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, claims.Subject)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondUnauthorized(ctx, "Unauthorized")
			return
		}

		h.log.Error("load user for refresh", "err", err)
		RespondInternal(ctx)
		return
	}

	// A nil slot means logged out; a mismatched hash means the presented
	// token was already rotated away (or never issued by us). Both read as
	// the same 401.
	if u.RefreshTokenHash == nil || *u.RefreshTokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnauthorized(ctx, "Unauthorized")
		return
	}

	// Rotation-on-use: overwriting the slot kills the token just presented.
	// Two concurrent refreshes can both reach this point; the slot is a
	// last-write-wins UPDATE, so one caller's new token dies on its next
	// use and that client simply re-authenticates. Accepted narrow race --
	// no per-user locking.
	accessToken, ok := h.startSession(ctx, cctx, u)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Token refreshed",
		"accessToken": accessToken,
	})
}

// Logout is best-effort: an absent or invalid token still logs "out", and the
// cookie is cleared no matter what. Nothing here may leak whether the token
// was real.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw := h.readRefreshToken(ctx)

	if raw != "" {
		if claims, err := h.jwt.VerifyRefreshToken(raw); err == nil {
			cctx, cancel := config.WithTimeout(3 * time.Second)

			defer cancel()

			_ = h.users.SetRefreshTokenHash(cctx, claims.Subject, nil)
		}
	}

	h.clearRefreshCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// startSession issues a fresh pair, rotates the stored refresh hash and sets
// the cookie. Register, login and refresh all converge here. Returns ok=false
// after answering the request on failure.
func (h *AuthHandler) startSession(ctx *gin.Context, cctx context.Context, u user.User) (accessToken string, ok bool) {
	accessToken, refreshToken, err := h.jwt.IssuePair(u.ID, u.Email)

	if err != nil {
		h.log.Error("issue token pair", "err", err)
		RespondInternal(ctx)
		return "", false
	}

	hash := h.jwt.HashRefreshToken(refreshToken)

	if err := h.users.SetRefreshTokenHash(cctx, u.ID, &hash); err != nil {
		h.log.Error("store refresh hash", "err", err)
		RespondInternal(ctx)
		return "", false
	}

	h.setRefreshCookie(ctx, refreshToken)

	return accessToken, true
}

// readRefreshToken prefers the httpOnly cookie; a refreshToken field in the
// body is the fallback for clients that cannot carry cookies. The body is
// optional, so bind errors are ignored here.
func (h *AuthHandler) readRefreshToken(ctx *gin.Context) string {
	if raw, err := ctx.Cookie(h.cfg.RefreshCookieName); err == nil && raw != "" {
		return raw
	}

	var req refreshRequest

	_ = ctx.ShouldBindJSON(&req)

	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string) {
	maxAge := int(h.cfg.RefreshTokenTTL.Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		h.cfg.RefreshCookieName,
		raw,
		maxAge,
		"/",
		"",
		h.secureCookies(),
		true, // HttpOnly
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		h.cfg.RefreshCookieName,
		"",
		-1,
		"/",
		"",
		h.secureCookies(),
		true,
	)
}

func (h *AuthHandler) secureCookies() bool {
	return h.cfg.Env == "prod" || h.cfg.Env == "production"
}
