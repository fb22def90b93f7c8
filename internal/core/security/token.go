// Package security holds the stateless building blocks of authentication:
// the token codec, the password hasher and the role-tier authorization
// decision.
package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/99minutos/todo-system/internal/core/domain"
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"

	minSecretLength = 32
)

type claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens with a single shared secret.
// Access and refresh tokens differ only by lifetime, subject and the
// token_use claim.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customises a TokenCodec.
type Option func(*TokenCodec)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec returns a codec for the given secret and lifetimes. The
// refresh lifetime must be longer than the access lifetime.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) (*TokenCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token codec: secret must be at least %d bytes", minSecretLength)
	}
	if accessTTL <= 0 {
		return nil, errors.New("token codec: access token lifetime must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, errors.New("token codec: refresh token lifetime must exceed access token lifetime")
	}

	c := &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueAccessToken mints a short-lived token for the given identity string.
func (c *TokenCodec) IssueAccessToken(subject string) (string, error) {
	return c.issue(subject, tokenUseAccess, c.accessTTL)
}

// IssueRefreshToken mints a long-lived token whose subject is the user id.
func (c *TokenCodec) IssueRefreshToken(userID int64) (string, error) {
	return c.issue(strconv.FormatInt(userID, 10), tokenUseRefresh, c.refreshTTL)
}

func (c *TokenCodec) issue(subject, use string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeSubject returns the subject of a correctly signed access token.
func (c *TokenCodec) DecodeSubject(token string) (string, error) {
	cl, err := c.decode(token, tokenUseAccess)
	if err != nil {
		return "", err
	}
	return cl.Subject, nil
}

// DecodeUserID returns the numeric subject of a correctly signed refresh
// token.
func (c *TokenCodec) DecodeUserID(token string) (int64, error) {
	cl, err := c.decode(token, tokenUseRefresh)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrTokenSubjectNotNumeric
	}
	return id, nil
}

// ValidateAccess reports nil for a correctly signed, unexpired access token.
func (c *TokenCodec) ValidateAccess(token string) error {
	return c.validate(token, tokenUseAccess)
}

// ValidateRefresh reports nil for a correctly signed, unexpired refresh token.
func (c *TokenCodec) ValidateRefresh(token string) error {
	return c.validate(token, tokenUseRefresh)
}

// decode verifies signature and structure only.
func (c *TokenCodec) decode(token, use string) (*claims, error) {
	cl := &claims{}
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := p.ParseWithClaims(token, cl, c.keyFunc); err != nil {
		return nil, domain.ErrTokenMalformed
	}
	if cl.TokenUse != use {
		return nil, domain.ErrTokenMalformed
	}
	return cl, nil
}

func (c *TokenCodec) validate(token, use string) error {
	cl := &claims{}
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	_, err := p.ParseWithClaims(token, cl, c.keyFunc)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if cl.TokenUse != use {
			return domain.ErrTokenMalformed
		}
		return domain.ErrTokenExpired
	default:
		return domain.ErrTokenMalformed
	}
	if cl.TokenUse != use {
		return domain.ErrTokenMalformed
	}
	return nil
}

func (c *TokenCodec) keyFunc(*jwt.Token) (any, error) {
	return c.secret, nil
}
