package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/health-tracker/internal/config"
	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/repository"
	"github.com/iliyamo/health-tracker/internal/store"
	"github.com/iliyamo/health-tracker/internal/utils"
	"github.com/iliyamo/health-tracker/internal/validation"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.AuthConfig
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Log    *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, u *repository.UserRepo, t *repository.TokenRepo, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userResp struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Username        *string    `json:"username,omitempty"`
	DateOfBirth     *string    `json:"dateOfBirth,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	Height          *float64   `json:"height,omitempty"`
	ProfileImageURL *string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type authResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         userResp  `json:"user"`
}

func toUserResp(u *model.User) userResp {
	return userResp{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Username:        u.Username,
		DateOfBirth:     u.DateOfBirth,
		Gender:          u.Gender,
		Height:          u.Height,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (h *AuthHandler) timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// issue creates an access/refresh pair for u and persists the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.AccessTTL())
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL())
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw, // raw back to client
		ExpiresAt:    access.Exp,
		User:         toUserResp(u),
	}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	fields, err := validBody(c, validation.Register)
	if err != nil {
		return writeError(c, err)
	}
	in := repository.NewUser{
		Email:     fields["email"].(string),
		Password:  fields["password"].(string),
		FirstName: fields["firstName"].(string),
		LastName:  fields["lastName"].(string),
	}
	if v, ok := fields["username"].(string); ok {
		in.Username = &v
	}

	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.Create(ctx, in, h.Cfg.BcryptCost)
	if err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			h.Log.ErrorContext(ctx, "register failed", "error", err)
		}
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.Log.ErrorContext(ctx, "issue tokens failed", "user_id", u.ID, "error", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	fields, err := validBody(c, validation.Login)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, fields["email"].(string))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid credentials"})
		}
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, fields["password"].(string)) {
		return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.Log.ErrorContext(ctx, "issue tokens failed", "user_id", u.ID, "error", err)
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new. A token can be
// exchanged only once; a second use is rejected.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Message: "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := h.timeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid refresh token"})
		}
		return writeError(c, err)
	}
	revoked, err := h.Tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return writeError(c, err)
	}
	if !revoked {
		return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid refresh token"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid refresh token"})
		}
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one session when a refresh_token is given in the body, or
// every session of the bearer when only an access token is presented.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid string
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid = claims.Subject
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := h.timeout(c)
	defer cancel()

	switch {
	case refreshToken != "":
		revoked, err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refreshToken))
		if err != nil {
			return writeError(c, err)
		}
		if !revoked {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid refresh token"})
		}
		return c.NoContent(http.StatusNoContent)
	case uid != "":
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, errorBody{Message: "provide Authorization header or refresh_token"})
}

// Profile returns the authenticated user's profile.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeProfileError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateProfile applies the validated profile fields to the caller.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, err := ownerID(c)
	if err != nil {
		return writeError(c, err)
	}
	fields, err := validBody(c, validation.UpdateProfile)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, store.Row(validation.Rename(fields, validation.ProfileColumns)))
	if err != nil {
		return writeProfileError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

func writeProfileError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Message: "user not found"})
	}
	return writeError(c, err)
}
