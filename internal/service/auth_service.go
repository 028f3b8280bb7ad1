package service

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/sirupsen/logrus"
)

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// ErrInvalidCredentials is returned when a Firebase ID token does not verify.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService exchanges Firebase identities for staff sessions. Staff
// accounts are provisioned by the owner; unknown identities are refused.
type AuthService struct {
	staffRepo    domain.StaffRepository
	authClient   FirebaseAuthClient
	tokenService *TokenService
	logger       *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	staffRepo domain.StaffRepository,
	authClient FirebaseAuthClient,
	tokenService *TokenService,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		staffRepo:    staffRepo,
		authClient:   authClient,
		tokenService: tokenService,
		logger:       logger,
	}
}

// LoginResponse carries the staff record and a fresh token pair
type LoginResponse struct {
	Staff  *domain.Staff `json:"staff"`
	Tokens *TokenPair    `json:"tokens"`
}

// Login verifies the Firebase ID token and issues a session
func (s *AuthService) Login(ctx context.Context, firebaseToken, userAgent, ipAddress string) (*LoginResponse, error) {
	token, err := s.authClient.VerifyIDToken(ctx, firebaseToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	staff, err := s.resolveStaff(ctx, token)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokenService.GenerateTokenPair(ctx, staff, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"staff_id": staff.ID, "roles": staff.Roles}).Info("Staff logged in")
	return &LoginResponse{Staff: staff, Tokens: tokens}, nil
}

// resolveStaff finds the staff record by firebase_uid, falling back to the
// email of a pre-provisioned account and linking it on first login
func (s *AuthService) resolveStaff(ctx context.Context, token *auth.Token) (*domain.Staff, error) {
	staff, err := s.staffRepo.GetByFirebaseUID(ctx, token.UID)
	if err == nil {
		return staff, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, domain.ErrForbidden
	}

	staff, err = s.staffRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}
	if staff.FirebaseUID != "" && staff.FirebaseUID != token.UID {
		return nil, fmt.Errorf("email already linked to different account: %w", domain.ErrForbidden)
	}

	if staff.FirebaseUID == "" {
		if err := s.staffRepo.UpdateFirebaseUID(ctx, staff.ID, token.UID); err != nil {
			return nil, fmt.Errorf("failed to link firebase account: %w", err)
		}
		staff.FirebaseUID = token.UID
	}
	return staff, nil
}
