package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func signed(t *testing.T, key string, staffID string, roles []string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := domain.StaffClaims{
		StaffID: staffID,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func newProtectedApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/desk", VerifyStaffToken(secret), AuthorizeRole(roles...), func(c *fiber.Ctx) error {
		return c.SendString(GetStaffID(c))
	})
	return app
}

func TestVerifyStaffToken(t *testing.T) {
	app := newProtectedApp(domain.RoleFrontDesk, domain.RoleOwner)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"wrong key", "Bearer " + signed(t, "other-secret", "s1", []string{domain.RoleOwner}, time.Hour), fiber.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, secret, "s1", []string{domain.RoleOwner}, -time.Minute), fiber.StatusUnauthorized},
		{"no staff id", "Bearer " + signed(t, secret, "", []string{domain.RoleOwner}, time.Hour), fiber.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, secret, "s1", []string{domain.RoleFrontDesk}, time.Hour), fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/desk", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuthorizeRole(t *testing.T) {
	app := newProtectedApp(domain.RoleOwner)

	req := httptest.NewRequest(fiber.MethodGet, "/desk", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, secret, "s1", []string{domain.RoleFrontDesk}, time.Hour))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/desk", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, secret, "s2", []string{domain.RoleFrontDesk, domain.RoleOwner}, time.Hour))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
