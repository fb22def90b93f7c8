package ports

import (
	"context"

	"github.com/99minutos/todo-system/internal/core/domain"
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

type AuthService interface {
	Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.Principal, error)
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*domain.LoginResult, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	InvalidateRefreshToken(ctx context.Context, refreshToken string) error
	// ResolvePrincipal validates an access token and loads the roles of its subject.
	ResolvePrincipal(ctx context.Context, accessToken string) (*domain.Principal, error)
}
