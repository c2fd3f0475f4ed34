package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for invitation operations.
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationUsed     = errors.New("invitation has already been used")
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

// Invitation lifecycle states. The only transition any operation performs
// is pending -> accepted; expired exists in the schema but nothing moves
// an invitation into it.
const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a single-use, token-authenticated offer for a specific
// email address to join with a specific role.
// swagger:model Invitation
type Invitation struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Role       Role             `json:"role"`
	Token      string           `json:"token"`
	Status     InvitationStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	CreatedBy  string           `json:"created_by"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
}

// InvitationRepository defines storage operations for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	// GetByToken returns ErrInvitationNotFound when no invitation matches.
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	// List returns all invitations ordered by creation time, newest first.
	List(ctx context.Context) ([]*Invitation, error)
}

// InvitationRedeemer converts a pending invitation into a user account as
// one atomic unit: the status flip to accepted (conditional on the current
// status still being pending) and the user insert either both happen or
// neither does. Returns ErrInvitationUsed when the invitation is no longer
// pending and ErrDuplicateEmail when the email already has an account.
type InvitationRedeemer interface {
	Redeem(ctx context.Context, invitationID string, acceptedAt time.Time, user *User) error
}

// InvitationService defines the invitation lifecycle business logic.
type InvitationService interface {
	Create(ctx context.Context, creatorID, email string, role Role) (*Invitation, error)
	// InviteURL builds the redemption link for a token: <origin>/invitation/<token>.
	InviteURL(token string) string
	Lookup(ctx context.Context, token string) (*Invitation, error)
	Redeem(ctx context.Context, token, password string) (*User, error)
	ListAll(ctx context.Context) ([]*Invitation, error)
}
