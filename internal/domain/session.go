package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a token references a session that was
// signed out or has expired.
var ErrSessionNotFound = errors.New("session not found")

// AuthSession is a server-side login session. Its ID doubles as the JWT
// "jti" claim, so deleting the row revokes the token.
type AuthSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token,omitempty"` // signed JWT, never persisted
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepository defines storage operations for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *AuthSession) error
	// GetByID returns ErrSessionNotFound when no live session matches.
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	Delete(ctx context.Context, id string) error
}

// TokenIssuer issues a signed token for an authenticated user.
type TokenIssuer interface {
	Issue(sessionID, userID, email string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a signed token and returns the session and user it
// was issued for.
type TokenVerifier interface {
	Verify(token string) (sessionID, userID string, err error)
}

// AuthService resolves who is authenticated and manages login sessions.
type AuthService interface {
	// SignIn validates credentials and opens a session. The returned
	// AuthSession carries the signed token.
	SignIn(ctx context.Context, email, password string) (*AuthSession, *User, error)
	// SignOut deletes the session. Deleting an already-gone session is not
	// an error.
	SignOut(ctx context.Context, sessionID string) error
	// CurrentUser resolves the full profile of an authenticated user.
	CurrentUser(ctx context.Context, userID string) (*User, error)
	// VerifyToken checks the token signature and that its session is still
	// live. Used by the HTTP auth middleware.
	VerifyToken(ctx context.Context, token string) (sessionID, userID string, err error)
}
