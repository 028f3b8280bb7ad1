package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/service"
)

const refreshCookieName = "frontdesk-refresh-token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
	refreshTTL   time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		refreshTTL:   refreshTTL,
	}
}

// Login handles POST /v1/auth/login with a Firebase ID token as bearer
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing Authorization header",
		})
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	resp, err := h.authService.Login(c.UserContext(), token, c.Get("User-Agent"), c.IP())
	if err != nil {
		return respondError(c, err)
	}

	h.setRefreshCookie(c, resp.Tokens.RefreshToken, time.Now().Add(h.refreshTTL))

	return c.JSON(fiber.Map{
		"token":         resp.Tokens.AccessToken,
		"refresh_token": resp.Tokens.RefreshToken,
		"expires_in":    resp.Tokens.ExpiresIn,
		"staff": fiber.Map{
			"id":    resp.Staff.ID,
			"name":  resp.Staff.Name,
			"roles": resp.Staff.Roles,
		},
	})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := h.refreshTokenFrom(c)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No refresh token provided",
		})
	}

	tokenPair, err := h.tokenService.RefreshAccessToken(c.UserContext(), refreshToken, c.Get("User-Agent"), c.IP())
	if err != nil {
		h.setRefreshCookie(c, "", time.Now().Add(-time.Hour))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	h.setRefreshCookie(c, tokenPair.RefreshToken, time.Now().Add(h.refreshTTL))

	return c.JSON(fiber.Map{
		"token":         tokenPair.AccessToken,
		"refresh_token": tokenPair.RefreshToken,
		"expires_in":    tokenPair.ExpiresIn,
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := h.refreshTokenFrom(c); refreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(c.UserContext(), refreshToken)
	}

	h.setRefreshCookie(c, "", time.Now().Add(-time.Hour))

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// refreshTokenFrom prefers the httpOnly cookie; desk kiosks without cookie
// support send {"refresh_token": "..."} instead.
func (h *AuthHandler) refreshTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(refreshCookieName); token != "" {
		return token
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.BodyParser(&body)
	return body.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: "Lax",
		Path:     "/v1/auth",
	})
}
