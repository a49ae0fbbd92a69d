package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/apperror"
	"github.com/iliyamo/office-booking/internal/config"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
	"github.com/iliyamo/office-booking/internal/utils"
)

// AccountStore is the account side of the profile table.
type AccountStore interface {
	Create(ctx context.Context, p *model.Profile) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts AccountStore
	Tokens   TokenStore
	Log      *logrus.Logger
}

func NewAuthHandler(cfg config.Config, a AccountStore, t TokenStore, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register: create the account with role "user" and return tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()
	exists, err := h.Accounts.EmailExists(ctx, email)
	if err != nil {
		return apperror.Internal("Failed to create account", err)
	}
	if exists {
		return apperror.Conflict("Email already registered")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return apperror.Validation("Validation failed",
			apperror.FieldError{Field: "password", Message: "password must be at most 72 bytes"})
	}
	if err != nil {
		return apperror.Internal("Failed to create account", err)
	}
	now := time.Now().UTC()
	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         model.RoleUser,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Accounts.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("Email already registered")
		}
		return apperror.Internal("Failed to create account", err)
	}
	h.Log.WithField("user_id", p.ID).Info("account registered")

	resp, err := h.issue(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify the password and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return apperror.Unauthorized("Invalid credentials")
		}
		return apperror.Internal("Login failed", err)
	}
	// Profiles created without a password cannot log in.
	if p.PasswordHash == "" || !utils.VerifyPassword(p.PasswordHash, req.Password) {
		return apperror.Unauthorized("Invalid credentials")
	}

	resp, err := h.issue(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apperror.Validation("Validation failed",
			apperror.FieldError{Field: "refresh_token", Message: "refresh_token is required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			return apperror.Unauthorized("Invalid refresh token")
		}
		return apperror.Internal("Refresh failed", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return apperror.Internal("Refresh failed", err)
	}

	p, err := h.Accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return apperror.Unauthorized("Invalid refresh token")
		}
		return apperror.Internal("Refresh failed", err)
	}

	resp, err := h.issue(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an access token is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrInvalidToken) {
				return apperror.Unauthorized("Invalid refresh token")
			}
			return apperror.Internal("Logout failed", err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return apperror.Internal("Logout failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
		if err != nil {
			return apperror.Unauthorized("Invalid or expired token")
		}
		if err := h.Tokens.RevokeAllForUser(ctx, claims.Subject); err != nil {
			return apperror.Internal("Logout failed", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	return apperror.Validation("Provide an Authorization header or a refresh_token")
}

// issue signs an access token and stores a fresh refresh token for p.
func (h *AuthHandler) issue(ctx context.Context, p *model.Profile) (*authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, apperror.Internal("Failed to issue access token", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, apperror.Internal("Failed to issue refresh token", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, apperror.Internal("Failed to save refresh token", err)
	}
	role := p.Role
	if !model.ValidRole(role) {
		role = model.RoleUser
	}
	return &authResp{
		User:    userPart{ID: p.ID, Email: p.Email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
