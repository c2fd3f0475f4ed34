// Package memory provides an in-memory implementation of the storage ports.
// It backs local development and tests, selected by STORE_DRIVER=memory, so
// callers never maintain parallel copies of code against different backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"invitegate/internal/domain"
)

// Store holds all records behind a single mutex. The mutex is held across
// the whole redemption sequence, giving it the same atomicity as the
// Postgres transaction.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*domain.User       // by ID
	usersByMail map[string]string             // email -> ID
	invitations map[string]*domain.Invitation // by ID
	tokens      map[string]string             // token -> invitation ID
	sessions    map[string]*domain.AuthSession
	now         func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]*domain.User),
		usersByMail: make(map[string]string),
		invitations: make(map[string]*domain.Invitation),
		tokens:      make(map[string]string),
		sessions:    make(map[string]*domain.AuthSession),
		now:         time.Now,
	}
}

// Users returns the store's domain.UserRepository view.
func (s *Store) Users() domain.UserRepository { return (*userStore)(s) }

// Invitations returns the store's domain.InvitationRepository view.
func (s *Store) Invitations() domain.InvitationRepository { return (*invitationStore)(s) }

// Sessions returns the store's domain.SessionRepository view.
func (s *Store) Sessions() domain.SessionRepository { return (*sessionStore)(s) }

// Redeemer returns the store's domain.InvitationRedeemer view.
func (s *Store) Redeemer() domain.InvitationRedeemer { return (*redeemStore)(s) }

type userStore Store

func (s *userStore) Create(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*Store)(s).createUserLocked(u)
}

// createUserLocked inserts a user. Callers must hold s.mu.
func (s *Store) createUserLocked(u *domain.User) error {
	if _, taken := s.usersByMail[u.Email]; taken {
		return domain.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByMail[u.Email] = u.ID
	return nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByMail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *userStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

type invitationStore Store

func (s *invitationStore) Create(ctx context.Context, inv *domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	cp := *inv
	s.invitations[inv.ID] = &cp
	s.tokens[inv.Token] = inv.ID
	return nil
}

func (s *invitationStore) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrInvitationNotFound
	}
	cp := *s.invitations[id]
	return &cp, nil
}

func (s *invitationStore) List(ctx context.Context) ([]*domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invs := make([]*domain.Invitation, 0, len(s.invitations))
	for _, inv := range s.invitations {
		cp := *inv
		invs = append(invs, &cp)
	}
	sort.Slice(invs, func(i, j int) bool {
		return invs[i].CreatedAt.After(invs[j].CreatedAt)
	})
	return invs, nil
}

type redeemStore Store

func (s *redeemStore) Redeem(ctx context.Context, invitationID string, acceptedAt time.Time, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invitationID]
	if !ok {
		return domain.ErrInvitationNotFound
	}
	if inv.Status != domain.InvitationPending {
		return domain.ErrInvitationUsed
	}
	if err := (*Store)(s).createUserLocked(user); err != nil {
		return err
	}
	inv.Status = domain.InvitationAccepted
	at := acceptedAt
	inv.AcceptedAt = &at
	return nil
}

type sessionStore Store

func (s *sessionStore) Create(ctx context.Context, sess *domain.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Token = ""
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *sessionStore) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.ExpiresAt.After(s.now()) {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
