package ports

import (
	"context"

	"github.com/99minutos/todo-system/internal/core/domain"
)

// UserRepository defines the persistence operations for user identities.
type UserRepository interface {
	// FindByUsernameOrEmail matches the given value against both the username
	// and the email column. Returns domain.ErrUserNotFound when nothing matches.
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create assigns the user an id and persists it.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// RoleRepository looks up seeded reference roles.
type RoleRepository interface {
	// FindByName returns domain.ErrRoleNotConfigured when the role is absent.
	FindByName(ctx context.Context, name string) (*domain.Role, error)
}

// RefreshTokenRepository holds at most one refresh token per user.
type RefreshTokenRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Create returns domain.ErrRefreshTokenExists when the user already owns a
	// token or the value collides.
	Create(ctx context.Context, token *domain.RefreshToken) error
	DeleteByToken(ctx context.Context, token string) error
}
