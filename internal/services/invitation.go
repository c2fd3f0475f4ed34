package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"invitegate/internal/domain"
)

const minPasswordLen = 6

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type invitationService struct {
	invRepo      domain.InvitationRepository
	redeemer     domain.InvitationRedeemer
	hasher       domain.PasswordHasher
	emailService domain.EmailService
	appOrigin    string
	logger       *slog.Logger
}

// NewInvitationService creates an InvitationService. emailService may be nil,
// in which case no invitation emails are sent. appOrigin is the base URL used
// to build redemption links.
func NewInvitationService(invRepo domain.InvitationRepository, redeemer domain.InvitationRedeemer, hasher domain.PasswordHasher, emailService domain.EmailService, appOrigin string, logger *slog.Logger) domain.InvitationService {
	return &invitationService{
		invRepo:      invRepo,
		redeemer:     redeemer,
		hasher:       hasher,
		emailService: emailService,
		appOrigin:    strings.TrimSuffix(appOrigin, "/"),
		logger:       logger,
	}
}

func (s *invitationService) Create(ctx context.Context, creatorID, email string, role domain.Role) (*domain.Invitation, error) {
	if creatorID == "" {
		return nil, domain.ErrUnauthenticated
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("invalid email format")
	}
	if !role.Valid() {
		role = domain.RoleGuest
	}

	inv := &domain.Invitation{
		Email:     email,
		Role:      role,
		Token:     uuid.NewString(),
		Status:    domain.InvitationPending,
		CreatedAt: time.Now(),
		CreatedBy: creatorID,
	}
	if err := s.invRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	// Fire-and-forget: a failed send never rolls back the invitation.
	if s.emailService != nil {
		data := &domain.InvitationEmailData{
			Email:     inv.Email,
			Role:      inv.Role,
			InviteURL: s.InviteURL(inv.Token),
		}
		go func() {
			if err := s.emailService.SendInvitation(context.Background(), data); err != nil {
				s.logger.Error("failed to send invitation email", "email", data.Email, "err", err)
			}
		}()
	}

	return inv, nil
}

// InviteURL builds the redemption link for a token.
func (s *invitationService) InviteURL(token string) string {
	return s.appOrigin + "/invitation/" + token
}

func (s *invitationService) Lookup(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := s.invRepo.GetByToken(ctx, token)
	if err != nil {
		if err == domain.ErrInvitationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch invitation: %w", err)
	}
	return inv, nil
}

func (s *invitationService) Redeem(ctx context.Context, token, password string) (*domain.User, error) {
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	inv, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrInvitationUsed
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Email:        inv.Email,
		Name:         localPart(inv.Email),
		Role:         inv.Role,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    now,
	}
	// The redeemer flips the status and inserts the user as one unit; the
	// status check above is only a fast path, the conditional update inside
	// is what makes the token single-use under concurrent redemption.
	if err := s.redeemer.Redeem(ctx, inv.ID, now, user); err != nil {
		if err == domain.ErrInvitationUsed || err == domain.ErrDuplicateEmail || err == domain.ErrInvitationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to redeem invitation: %w", err)
	}
	return user, nil
}

func (s *invitationService) ListAll(ctx context.Context) ([]*domain.Invitation, error) {
	invs, err := s.invRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

// localPart returns the part of an email address before the '@'.
func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
