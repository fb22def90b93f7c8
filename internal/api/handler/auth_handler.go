package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/todo-system/internal/api/metrics"
	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
)

// LoginLimiter tracks failed logins per identity. Implemented by the Redis
// login throttle.
type LoginLimiter interface {
	Blocked(ctx context.Context, identity string) (bool, error)
	RecordFailure(ctx context.Context, identity string) error
	Reset(ctx context.Context, identity string) error
}

type AuthHandler struct {
	authService ports.AuthService
	limiter     LoginLimiter
	log         zerolog.Logger
}

// NewAuthHandler builds the auth endpoints. limiter may be nil, which
// disables login throttling.
func NewAuthHandler(authService ports.AuthService, limiter LoginLimiter, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter, log: log}
}

// Register creates a new user account with the default role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest   true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateUsername):
			metrics.RegistrationsTotal.WithLabelValues("duplicate_username").Inc()
		case errors.Is(err, domain.ErrDuplicateEmail):
			metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, registerResponse{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
	})
}

// Login authenticates a user and returns an access and a refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}

	ctx := c.Request().Context()
	if h.limiter != nil {
		blocked, err := h.limiter.Blocked(ctx, req.UsernameOrEmail)
		if err != nil {
			h.log.Warn().Err(err).Msg("login throttle unavailable")
		}
		if blocked {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			return domain.ErrLoginThrottled
		}
	}

	result, err := h.authService.Login(ctx, req.UsernameOrEmail, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			h.recordFailure(ctx, req.UsernameOrEmail)
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, req.UsernameOrEmail); err != nil {
			h.log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		UserID:       result.UserID,
		Role:         result.Role,
	})
}

func (h *AuthHandler) recordFailure(ctx context.Context, identity string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.RecordFailure(ctx, identity); err != nil {
		h.log.Warn().Err(err).Msg("failed to record login failure")
	}
}

// RefreshToken mints a new access token from a refresh token. An expired
// refresh token ends the session: its stored row is deleted and 401 returned.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshTokenRequest  true  "Refresh token"
// @Success      201   {object}  refreshTokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()
	access, err := h.authService.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			if derr := h.authService.InvalidateRefreshToken(ctx, req.RefreshToken); derr != nil &&
				!errors.Is(derr, domain.ErrRefreshTokenNotFound) {
				h.log.Error().Err(derr).Msg("failed to delete expired refresh token")
			}
			metrics.TokenRefreshTotal.WithLabelValues("expired").Inc()
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "session has expired"})
		}

		h.log.Debug().Err(err).Msg("token refresh rejected")
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "token refresh failed"})
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, refreshTokenResponse{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
	})
}
