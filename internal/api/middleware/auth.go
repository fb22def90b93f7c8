package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/todo-system/internal/core/domain"
)

const principalKey = "principal"

// PrincipalResolver turns a bearer token into the caller's identity.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, accessToken string) (*domain.Principal, error)
}

// Auth validates the bearer access token and stores the resolved principal
// in the request context. Requests without a valid token never reach next.
func Auth(resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := resolver.ResolvePrincipal(c.Request().Context(), strings.TrimSpace(parts[1]))
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			case errors.Is(err, domain.ErrTokenMalformed),
				errors.Is(err, domain.ErrTokenSubjectNotNumeric),
				errors.Is(err, domain.ErrUserNotFound):
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			default:
				return err
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by Auth, or nil when the request
// was not authenticated.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}
