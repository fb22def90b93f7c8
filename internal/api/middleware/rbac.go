package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/todo-system/internal/api/metrics"
	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/security"
)

// RequireTier enforces the role tier of a route. It must run after Auth.
func RequireTier(tier security.Tier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if p == nil {
				return domain.ErrUnauthenticated
			}
			if err := security.Authorize(tier, p.Roles); err != nil {
				metrics.AuthorizationDeniedTotal.WithLabelValues(tier.String()).Inc()
				return err
			}
			return next(c)
		}
	}
}
