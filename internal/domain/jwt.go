package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// StaffClaims represents the custom JWT claims issued to staff
type StaffClaims struct {
	StaffID string   `json:"staff_id"`
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}
