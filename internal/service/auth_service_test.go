package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/frontdesk/internal/config"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeStaffRepo struct {
	mu    sync.Mutex
	staff map[string]*domain.Staff
}

func (r *fakeStaffRepo) Create(ctx context.Context, s *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staff == nil {
		r.staff = map[string]*domain.Staff{}
	}
	if s.ID == "" {
		s.ID = "staff-" + s.Email
	}
	c := *s
	r.staff[s.ID] = &c
	return nil
}

func (r *fakeStaffRepo) find(match func(*domain.Staff) bool) (*domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.staff {
		if match(s) {
			c := *s
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeStaffRepo) GetByID(ctx context.Context, id string) (*domain.Staff, error) {
	return r.find(func(s *domain.Staff) bool { return s.ID == id })
}

func (r *fakeStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	return r.find(func(s *domain.Staff) bool { return s.Email == email })
}

func (r *fakeStaffRepo) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Staff, error) {
	return r.find(func(s *domain.Staff) bool { return s.FirebaseUID != "" && s.FirebaseUID == uid })
}

func (r *fakeStaffRepo) UpdateFirebaseUID(ctx context.Context, staffID, firebaseUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[staffID]
	if !ok {
		return domain.ErrNotFound
	}
	s.FirebaseUID = firebaseUID
	return nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func (r *fakeRefreshRepo) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens == nil {
		r.tokens = map[string]*domain.RefreshToken{}
	}
	c := *token
	r.tokens[token.TokenHash] = &c
	return nil
}

func (r *fakeRefreshRepo) FindByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeRefreshRepo) RevokeByHash(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (r *fakeRefreshRepo) RevokeAllByStaffID(ctx context.Context, staffID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.StaffID == staffID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *fakeRefreshRepo) DeleteExpired(ctx context.Context) error { return nil }

type fakeFirebase struct {
	tokens map[string]*auth.Token
}

func (f *fakeFirebase) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if t, ok := f.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("token has expired")
}

type authFixture struct {
	staff   *fakeStaffRepo
	refresh *fakeRefreshRepo
	clock   *testClock
	tokens  *TokenService
	auth    *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		staff:   &fakeStaffRepo{},
		refresh: &fakeRefreshRepo{},
		clock:   &testClock{at: time.Now()},
	}
	f.tokens = NewTokenService(config.JWTConfig{
		Secret:             testSecret,
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
	}, f.refresh, f.staff, f.clock)

	firebase := &fakeFirebase{tokens: map[string]*auth.Token{
		"desk-token":     {UID: "uid-desk", Claims: map[string]interface{}{"email": "desk@gym.test"}},
		"stranger-token": {UID: "uid-stranger", Claims: map[string]interface{}{"email": "walkin@gym.test"}},
		"thief-token":    {UID: "uid-thief", Claims: map[string]interface{}{"email": "owner@gym.test"}},
	}}
	f.auth = NewAuthService(f.staff, firebase, f.tokens, logger.Discard())

	require.NoError(t, f.staff.Create(context.Background(), &domain.Staff{ID: "s-desk", Email: "desk@gym.test", Name: "Desk", Roles: []string{domain.RoleFrontDesk}}))
	require.NoError(t, f.staff.Create(context.Background(), &domain.Staff{ID: "s-owner", Email: "owner@gym.test", FirebaseUID: "uid-owner", Name: "Owner", Roles: []string{domain.RoleOwner}}))
	return f
}

func TestAuth_LoginLinksProvisionedStaff(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, "desk-token", "kiosk", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "s-desk", resp.Staff.ID)
	assert.Equal(t, "uid-desk", resp.Staff.FirebaseUID)

	linked, err := f.staff.GetByFirebaseUID(ctx, "uid-desk")
	require.NoError(t, err)
	assert.Equal(t, "s-desk", linked.ID)

	claims := &domain.StaffClaims{}
	_, err = jwt.ParseWithClaims(resp.Tokens.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "s-desk", claims.StaffID)
	assert.Equal(t, []string{domain.RoleFrontDesk}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, int64(900), resp.Tokens.ExpiresIn)
}

func TestAuth_LoginRefusals(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, "forged", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, "stranger-token", "", "")
	assert.ErrorIs(t, err, domain.ErrForbidden, "unprovisioned identities are refused")

	_, err = f.auth.Login(ctx, "thief-token", "", "")
	assert.ErrorIs(t, err, domain.ErrForbidden, "email already linked to another uid")
}

func TestTokens_RefreshRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, "desk-token", "kiosk", "10.0.0.2")
	require.NoError(t, err)

	pair, err := f.tokens.RefreshAccessToken(ctx, resp.Tokens.RefreshToken, "kiosk", "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, resp.Tokens.RefreshToken, pair.RefreshToken)

	_, err = f.tokens.RefreshAccessToken(ctx, resp.Tokens.RefreshToken, "kiosk", "10.0.0.2")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "refresh tokens are single use")

	_, err = f.tokens.RefreshAccessToken(ctx, "never-issued", "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestTokens_RefreshExpires(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Login(ctx, "desk-token", "", "")
	require.NoError(t, err)

	f.clock.set(f.clock.Now().Add(25 * time.Hour))
	_, err = f.tokens.RefreshAccessToken(ctx, resp.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestTokens_Revocation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.auth.Login(ctx, "desk-token", "front", "")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "desk-token", "back", "")
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeRefreshToken(ctx, first.Tokens.RefreshToken))
	_, err = f.tokens.RefreshAccessToken(ctx, first.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, f.tokens.RevokeAllStaffTokens(ctx, "s-desk"))
	_, err = f.tokens.RefreshAccessToken(ctx, second.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
