package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
	"github.com/99minutos/todo-system/internal/core/security"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
	err    error // if set, every call returns it
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) FindByUsernameOrEmail(_ context.Context, v string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == v || u.Email == v {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	created := cloneUser(user)
	created.ID = r.nextID
	r.users[created.ID] = created
	return cloneUser(created), nil
}

func (r *stubUserRepo) delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

type stubRoleRepo struct {
	roles map[string]*domain.Role
}

func newStubRoleRepo(names ...string) *stubRoleRepo {
	r := &stubRoleRepo{roles: make(map[string]*domain.Role)}
	for i, n := range names {
		r.roles[n] = &domain.Role{ID: int64(i + 1), Name: n}
	}
	return r
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, domain.ErrRoleNotConfigured
	}
	clone := *role
	return &clone, nil
}

type stubRefreshRepo struct {
	mu      sync.Mutex
	byUser  map[int64]*domain.RefreshToken
	creates int
	// beforeCreate runs without the lock held; tests use it to widen races.
	beforeCreate func()
}

func newStubRefreshRepo() *stubRefreshRepo {
	return &stubRefreshRepo{byUser: make(map[int64]*domain.RefreshToken)}
}

func (r *stubRefreshRepo) FindByUserID(_ context.Context, userID int64) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	clone := *rt
	return &clone, nil
}

func (r *stubRefreshRepo) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.byUser {
		if rt.Token == token {
			clone := *rt
			return &clone, nil
		}
	}
	return nil, domain.ErrRefreshTokenNotFound
}

func (r *stubRefreshRepo) Create(_ context.Context, rt *domain.RefreshToken) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUser[rt.UserID]; exists {
		return domain.ErrRefreshTokenExists
	}
	clone := *rt
	r.byUser[rt.UserID] = &clone
	r.creates++
	return nil
}

func (r *stubRefreshRepo) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rt := range r.byUser {
		if rt.Token == token {
			delete(r.byUser, id)
			return nil
		}
	}
	return domain.ErrRefreshTokenNotFound
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ---------------------------------------------------------------------------
// Helper: wire a service over fresh stubs.
// ---------------------------------------------------------------------------

type authFixture struct {
	svc     *AuthService
	users   *stubUserRepo
	refresh *stubRefreshRepo
	codec   *security.TokenCodec
	clock   *testClock
}

func newAuthFixture(t *testing.T, roleNames ...string) *authFixture {
	t.Helper()
	if roleNames == nil {
		roleNames = []string{domain.RoleAdmin, domain.RoleUser}
	}
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	codec, err := security.NewTokenCodec("0123456789abcdef0123456789abcdef", 15*time.Minute, 24*time.Hour, security.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("token codec: %v", err)
	}
	f := &authFixture{
		users:   newStubUserRepo(),
		refresh: newStubRefreshRepo(),
		codec:   codec,
		clock:   clock,
	}
	f.svc = NewAuthService(f.users, newStubRoleRepo(roleNames...), f.refresh, codec, security.NewBcryptHasher(bcrypt.MinCost), zerolog.Nop())
	return f
}

func (f *authFixture) register(t *testing.T, name, username, email, password string) *domain.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: name, Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	if user.ID == 0 {
		t.Fatalf("expected server-assigned id")
	}
	if user.PasswordHash == "pw1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if got := user.RoleNames(); len(got) != 1 || got[0] != domain.RoleUser {
		t.Fatalf("expected exactly %s, got %v", domain.RoleUser, got)
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Other", Username: "ada", Email: "other@x.io", Password: "pw"})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_Register_UsernameReportedBeforeEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Ada", Username: "ada", Email: "ada@x.io", Password: "pw"})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Bob", Username: "bob", Email: "ada@x.io", Password: "pw"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Register_RoleNotConfigured(t *testing.T) {
	f := newAuthFixture(t, domain.RoleAdmin)

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Name: "Ada", Username: "ada", Email: "ada@x.io", Password: "pw"})
	if !errors.Is(err, domain.ErrRoleNotConfigured) {
		t.Fatalf("expected ErrRoleNotConfigured, got %v", err)
	}
	if len(f.users.users) != 0 {
		t.Fatalf("no user should be persisted")
	}
}

// ---------------------------------------------------------------------------
// Authenticate / Login
// ---------------------------------------------------------------------------

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	for _, id := range []string{"ada", "ada@x.io"} {
		p, err := f.svc.Authenticate(context.Background(), id, "pw1")
		if err != nil {
			t.Fatalf("authenticate %s: %v", id, err)
		}
		if p.UserID != u.ID || p.Username != "ada" || p.Subject != id {
			t.Fatalf("unexpected principal: %+v", p)
		}
		if len(p.Roles) != 1 || p.Roles[0] != domain.RoleUser {
			t.Fatalf("unexpected roles: %v", p.Roles)
		}
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	res, err := f.svc.Login(context.Background(), "ada", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", res)
	}
	if res.UserID != u.ID || res.Role != domain.RoleUser {
		t.Fatalf("unexpected result: %+v", res)
	}

	sub, err := f.codec.DecodeSubject(res.AccessToken)
	if err != nil || sub != "ada" {
		t.Fatalf("access token subject = %q, %v", sub, err)
	}
	id, err := f.codec.DecodeUserID(res.RefreshToken)
	if err != nil || id != u.ID {
		t.Fatalf("refresh token user id = %d, %v", id, err)
	}
}

func TestAuthService_Login_ReusesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	first, err := f.svc.Login(context.Background(), "ada", "pw1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.svc.Login(context.Background(), "ada@x.io", "pw1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.RefreshToken != second.RefreshToken {
		t.Fatalf("refresh token rotated on re-login")
	}
	if first.AccessToken == second.AccessToken {
		t.Fatalf("expected a fresh access token per login")
	}
	if f.refresh.creates != 1 {
		t.Fatalf("expected one refresh token row, got %d", f.refresh.creates)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	cases := []struct{ id, pw string }{
		{"ada", "wrong"},
		{"ghost", "pw1"},
		{"", "pw1"},
		{"ada", ""},
	}
	for _, c := range cases {
		if _, err := f.svc.Login(context.Background(), c.id, c.pw); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("login(%q,%q): expected ErrInvalidCredentials, got %v", c.id, c.pw, err)
		}
	}
	if len(f.refresh.byUser) != 0 {
		t.Fatalf("failed logins must not create refresh tokens")
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.users.err = errors.New("connection reset")

	_, err := f.svc.Login(context.Background(), "ada", "pw1")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("store failures must not look like bad credentials, got %v", err)
	}
}

func TestAuthService_Login_PrimaryRoleIsDeterministic(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Root", "root", "root@x.io", "pw")
	f.users.mu.Lock()
	f.users.users[u.ID].Roles = []domain.Role{{ID: 2, Name: domain.RoleUser}, {ID: 1, Name: domain.RoleAdmin}}
	f.users.mu.Unlock()

	res, err := f.svc.Login(context.Background(), "root", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Role != domain.RoleAdmin {
		t.Fatalf("expected lexicographically smallest role %s, got %s", domain.RoleAdmin, res.Role)
	}
}

func TestAuthService_Login_ConcurrentFirstLogins(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	const n = 8
	var start sync.WaitGroup
	start.Add(n)
	f.refresh.beforeCreate = func() {
		start.Done()
		start.Wait()
	}

	results := make([]*domain.LoginResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Login(context.Background(), "ada", "pw1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("login %d: %v", i, errs[i])
		}
		if results[i].RefreshToken != results[0].RefreshToken {
			t.Fatalf("login %d returned a different refresh token", i)
		}
	}
	if f.refresh.creates != 1 || len(f.refresh.byUser) != 1 {
		t.Fatalf("expected exactly one stored refresh token, creates=%d rows=%d", f.refresh.creates, len(f.refresh.byUser))
	}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestAuthService_RefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")

	login, err := f.svc.Login(context.Background(), "ada@x.io", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := f.svc.RefreshAccessToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == login.AccessToken {
		t.Fatalf("expected a new access token")
	}
	if sub, _ := f.codec.DecodeSubject(access); sub != "ada" {
		t.Fatalf("renewed token should carry the username, got %q", sub)
	}
	if _, err := f.refresh.FindByToken(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("refresh token must not be rotated: %v", err)
	}
}

func TestAuthService_RefreshAccessToken_Expired(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	login, _ := f.svc.Login(context.Background(), "ada", "pw1")

	f.clock.Advance(25 * time.Hour)

	_, err := f.svc.RefreshAccessToken(context.Background(), login.RefreshToken)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if err := f.svc.InvalidateRefreshToken(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := f.refresh.FindByToken(context.Background(), login.RefreshToken); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Fatalf("expected token to be gone, got %v", err)
	}

	// A fresh login after the session ended mints a new refresh token.
	again, err := f.svc.Login(context.Background(), "ada", "pw1")
	if err != nil {
		t.Fatalf("login after expiry: %v", err)
	}
	if again.RefreshToken == login.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
}

func TestAuthService_Login_ReplacesExpiredRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	first, _ := f.svc.Login(context.Background(), "ada", "pw1")

	f.clock.Advance(25 * time.Hour)

	second, err := f.svc.Login(context.Background(), "ada", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expired refresh token must not be handed out again")
	}
	stored, err := f.refresh.FindByUserID(context.Background(), u.ID)
	if err != nil || stored.Token != second.RefreshToken {
		t.Fatalf("expected the new token to be stored, got %+v (%v)", stored, err)
	}
	if err := f.codec.ValidateRefresh(second.RefreshToken); err != nil {
		t.Fatalf("new refresh token should be valid: %v", err)
	}
}

func TestAuthService_RefreshAccessToken_Failures(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	login, _ := f.svc.Login(context.Background(), "ada", "pw1")

	if _, err := f.svc.RefreshAccessToken(context.Background(), "garbage"); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
	if _, err := f.svc.RefreshAccessToken(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	f.users.delete(u.ID)
	if _, err := f.svc.RefreshAccessToken(context.Background(), login.RefreshToken); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_InvalidateRefreshToken_Unknown(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.InvalidateRefreshToken(context.Background(), "nope"); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ResolvePrincipal
// ---------------------------------------------------------------------------

func TestAuthService_ResolvePrincipal(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	login, _ := f.svc.Login(context.Background(), "ada@x.io", "pw1")

	p, err := f.svc.ResolvePrincipal(context.Background(), login.AccessToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.UserID != u.ID || p.Subject != "ada@x.io" || p.Username != "ada" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if _, err := f.svc.ResolvePrincipal(context.Background(), login.RefreshToken); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("refresh token must not authenticate requests, got %v", err)
	}

	f.clock.Advance(16 * time.Minute)
	if _, err := f.svc.ResolvePrincipal(context.Background(), login.AccessToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// End-to-end session lifecycle
// ---------------------------------------------------------------------------

func TestAuthService_SessionLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.register(t, "Ada", "ada", "ada@x.io", "pw1")
	login, err := f.svc.Login(ctx, "ada", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.UserID != user.ID || login.Role != domain.RoleUser {
		t.Fatalf("unexpected login result: %+v", login)
	}
	if _, err := f.svc.Login(ctx, "ada", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Access token lapses; the refresh token still renews it.
	f.clock.Advance(20 * time.Minute)
	if _, err := f.svc.ResolvePrincipal(ctx, login.AccessToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected expired access token, got %v", err)
	}
	renewed, err := f.svc.RefreshAccessToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renewed == login.AccessToken || strings.TrimSpace(renewed) == "" {
		t.Fatalf("expected a new access token")
	}
	if _, err := f.svc.ResolvePrincipal(ctx, renewed); err != nil {
		t.Fatalf("renewed token rejected: %v", err)
	}

	// Refresh token lapses; the session ends.
	f.clock.Advance(24 * time.Hour)
	if _, err := f.svc.RefreshAccessToken(ctx, login.RefreshToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if err := f.svc.InvalidateRefreshToken(ctx, login.RefreshToken); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := f.refresh.FindByUserID(ctx, user.ID); !errors.Is(err, domain.ErrRefreshTokenNotFound) {
		t.Fatalf("expected no refresh token, got %v", err)
	}
}
