// Package session holds the observable "who is signed in" state for a single
// client of the auth service. It replaces ambient global identity state with
// an explicit object: one source of truth, observable for change.
package session

import (
	"context"
	"sync"

	"invitegate/internal/domain"
)

// Status is the ternary authentication state.
type Status int

// Authentication states. Loading is the initial state and is left exactly
// once, after the first session check; afterwards the state moves between
// Anonymous and Identified via SignIn and SignOut.
const (
	StatusLoading Status = iota
	StatusAnonymous
	StatusIdentified
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusIdentified:
		return "identified"
	}
	return "unknown"
}

// Snapshot is an immutable view of the provider state. User is non-nil only
// when Status is StatusIdentified.
type Snapshot struct {
	Status Status
	User   *domain.User
}

// IsAdmin reports whether the snapshot identifies an admin. It is derived
// from the snapshot on every call, never cached separately.
func (s Snapshot) IsAdmin() bool {
	return s.Status == StatusIdentified && s.User.IsAdmin()
}

// Provider tracks the current identity against an AuthService. Safe for
// concurrent use.
type Provider struct {
	auth domain.AuthService

	mu      sync.RWMutex
	status  Status
	user    *domain.User
	session *domain.AuthSession
	subs    map[int]chan Snapshot
	nextSub int
}

// NewProvider returns a Provider in the Loading state.
func NewProvider(auth domain.AuthService) *Provider {
	return &Provider{
		auth: auth,
		subs: make(map[int]chan Snapshot),
	}
}

// Init resolves a previously issued token, moving the provider out of
// Loading: to Identified when the token still names a live session, to
// Anonymous otherwise (including when token is empty). Calling Init after
// the provider has left Loading is a no-op, even when the state changed
// while Init's backend calls were in flight.
func (p *Provider) Init(ctx context.Context, token string) {
	p.mu.RLock()
	loading := p.status == StatusLoading
	p.mu.RUnlock()
	if !loading {
		return
	}

	status := StatusAnonymous
	var user *domain.User
	var session *domain.AuthSession
	if token != "" {
		if sessionID, userID, err := p.auth.VerifyToken(ctx, token); err == nil {
			if u, err := p.auth.CurrentUser(ctx, userID); err == nil {
				status = StatusIdentified
				user = u
				// Keep the restored session so a later SignOut can end it.
				session = &domain.AuthSession{ID: sessionID, UserID: userID, Token: token}
			}
		}
	}

	p.mu.Lock()
	if p.status != StatusLoading {
		p.mu.Unlock()
		return
	}
	p.setLocked(status, user, session)
	p.mu.Unlock()
}

// SignIn authenticates and, on success, moves the provider to Identified.
// On failure the provider is left (or reset to) Anonymous and the error is
// returned for the caller's messaging.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	session, user, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		p.set(StatusAnonymous, nil, nil)
		return nil, err
	}
	p.set(StatusIdentified, user, session)
	return user, nil
}

// SignOut ends the backend session and resets local state to Anonymous.
// Local state is reset even when the backend call fails; the error is still
// returned so callers can surface it.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.RLock()
	session := p.session
	p.mu.RUnlock()

	var err error
	if session != nil {
		err = p.auth.SignOut(ctx, session.ID)
	}
	p.set(StatusAnonymous, nil, nil)
	return err
}

// Current returns the current snapshot.
func (p *Provider) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{Status: p.status, User: p.user}
}

// IsAdmin reports whether the currently identified user is an admin.
func (p *Provider) IsAdmin() bool {
	return p.Current().IsAdmin()
}

// Token returns the signed token of the current session, or "" when anonymous.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return ""
	}
	return p.session.Token
}

// Subscribe registers for state-change notifications. Each change is sent as
// a Snapshot on the returned channel; slow receivers miss intermediate states
// rather than blocking the provider. The cancel func must be called when done.
func (p *Provider) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
}

func (p *Provider) set(status Status, user *domain.User, session *domain.AuthSession) {
	p.mu.Lock()
	p.setLocked(status, user, session)
	p.mu.Unlock()
}

// setLocked applies a state change and notifies subscribers. Callers must
// hold p.mu.
func (p *Provider) setLocked(status Status, user *domain.User, session *domain.AuthSession) {
	p.status = status
	p.user = user
	p.session = session
	snap := Snapshot{Status: status, User: user}
	for _, ch := range p.subs {
		// Drop the stale snapshot if the subscriber hasn't read it yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
