package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
)

// AuthService implements registration, login, token renewal and principal
// resolution. It keeps no state of its own; everything lives in the stores.
type AuthService struct {
	users   ports.UserRepository
	roles   ports.RoleRepository
	refresh ports.RefreshTokenRepository
	tokens  ports.TokenCodec
	hasher  ports.PasswordHasher
	log     zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	refresh ports.RefreshTokenRepository,
	tokens ports.TokenCodec,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		roles:   roles,
		refresh: refresh,
		tokens:  tokens,
		hasher:  hasher,
		log:     log,
	}
}

// Authenticate checks a username-or-email and password pair. Unknown
// identities and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.Principal, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	return &domain.Principal{
		UserID:   user.ID,
		Subject:  usernameOrEmail,
		Username: user.Username,
		Roles:    user.RoleNames(),
	}, nil
}

// Register creates an account holding only the standard role. A username
// collision is reported before an email collision.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateUsername
	}

	exists, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	role, err := s.roles.FindByName(ctx, domain.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotConfigured) {
			s.log.Error().Str("role", domain.RoleUser).Msg("default role missing, registration refused")
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        []domain.Role{*role},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login authenticates, mints an access token and returns the user's single
// refresh token, creating it on first login.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.LoginResult, error) {
	principal, err := s.Authenticate(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(principal.Subject)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	// Re-read: the user may have been deleted since authentication.
	user, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	refresh, err := s.refreshTokenFor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")

	return &domain.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Role:         user.PrimaryRole(),
	}, nil
}

// refreshTokenFor returns the stored token of userID, minting one if none
// exists or the stored one has expired. A concurrent login that wins the
// insert is reused.
func (s *AuthService) refreshTokenFor(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	existing, err := s.refresh.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if !errors.Is(s.tokens.ValidateRefresh(existing.Token), domain.ErrTokenExpired) {
			return existing, nil
		}
		if err := s.refresh.DeleteByToken(ctx, existing.Token); err != nil &&
			!errors.Is(err, domain.ErrRefreshTokenNotFound) {
			return nil, err
		}
		s.log.Info().Int64("user_id", userID).Msg("expired refresh token replaced")
	case !errors.Is(err, domain.ErrRefreshTokenNotFound):
		return nil, err
	}

	value, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	rt := &domain.RefreshToken{
		ID:        ulid.Make().String(),
		Token:     value,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.refresh.Create(ctx, rt); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenExists) {
			s.log.Debug().Int64("user_id", userID).Msg("concurrent login created refresh token first")
			return s.refresh.FindByUserID(ctx, userID)
		}
		return nil, err
	}
	return rt, nil
}

// RefreshAccessToken mints a new access token from a refresh token. The
// refresh token itself is not rotated. An expired refresh token surfaces as
// domain.ErrTokenExpired so the caller can end the session.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.DecodeUserID(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	if err := s.tokens.ValidateRefresh(refreshToken); err != nil {
		return "", err
	}

	access, err := s.tokens.IssueAccessToken(user.Username)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return access, nil
}

// InvalidateRefreshToken deletes the stored refresh token with the given
// value, ending the session it belongs to.
func (s *AuthService) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	if err := s.refresh.DeleteByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("invalidate refresh token: %w", err)
	}
	s.log.Info().Msg("refresh token invalidated")
	return nil
}

// ResolvePrincipal validates an access token and loads its subject's roles.
func (s *AuthService) ResolvePrincipal(ctx context.Context, accessToken string) (*domain.Principal, error) {
	if err := s.tokens.ValidateAccess(accessToken); err != nil {
		return nil, err
	}
	subject, err := s.tokens.DecodeSubject(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}

	return &domain.Principal{
		UserID:   user.ID,
		Subject:  subject,
		Username: user.Username,
		Roles:    user.RoleNames(),
	}, nil
}
