package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"invitegate/internal/domain"
)

type authService struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	hasher      domain.PasswordHasher
	issuer      domain.TokenIssuer
	verifier    domain.TokenVerifier
	tokenExpiry time.Duration
}

// NewAuthService creates an AuthService with the given repositories and token ports.
func NewAuthService(userRepo domain.UserRepository, sessionRepo domain.SessionRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer, verifier domain.TokenVerifier, tokenExpiry time.Duration) domain.AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		issuer:      issuer,
		verifier:    verifier,
		tokenExpiry: tokenExpiry,
	}
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, *domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, domain.ErrCredentialsRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	session := &domain.AuthSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenExpiry),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	token, err := s.issuer.Issue(session.ID, user.ID, user.Email, user.Role, s.tokenExpiry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign token: %w", err)
	}
	session.Token = token
	return session, user, nil
}

func (s *authService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrUnauthenticated
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// A live session pointing at a missing user is data corruption,
			// not an anonymous caller. Surface it instead of degrading to a
			// guest identity.
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *authService) VerifyToken(ctx context.Context, token string) (string, string, error) {
	sessionID, userID, err := s.verifier.Verify(token)
	if err != nil {
		return "", "", err
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", "", domain.ErrSessionNotFound
		}
		return "", "", fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != userID {
		return "", "", domain.ErrSessionNotFound
	}
	return sessionID, userID, nil
}
