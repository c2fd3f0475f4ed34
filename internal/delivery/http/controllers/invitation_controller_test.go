package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invitegate/internal/delivery/http/helpers"
	"invitegate/internal/delivery/http/middleware"
	"invitegate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvitationService struct {
	created     *domain.Invitation
	lookup      map[string]*domain.Invitation
	redeemed    *domain.User
	invitations []*domain.Invitation

	createErr error
	redeemErr error
	listErr   error

	gotCreatorID string
	gotEmail     string
	gotRole      domain.Role
	gotPassword  string
}

func (f *fakeInvitationService) Create(ctx context.Context, creatorID, email string, role domain.Role) (*domain.Invitation, error) {
	f.gotCreatorID = creatorID
	f.gotEmail = email
	f.gotRole = role
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeInvitationService) InviteURL(token string) string {
	return "https://app.example.com/invitation/" + token
}

func (f *fakeInvitationService) Lookup(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, ok := f.lookup[token]
	if !ok {
		return nil, domain.ErrInvitationNotFound
	}
	return inv, nil
}

func (f *fakeInvitationService) Redeem(ctx context.Context, token, password string) (*domain.User, error) {
	f.gotPassword = password
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	if _, ok := f.lookup[token]; !ok {
		return nil, domain.ErrInvitationNotFound
	}
	return f.redeemed, nil
}

func (f *fakeInvitationService) ListAll(ctx context.Context) ([]*domain.Invitation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.invitations, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *helpers.APIError) {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data, envelope.Error
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.SetIdentity(req.Context(), "admin-1", "sess-1"))
}

func pendingInvitation(token string) *domain.Invitation {
	return &domain.Invitation{
		ID:        "inv-1",
		Email:     "new@example.com",
		Role:      domain.RoleGuest,
		Token:     token,
		Status:    domain.InvitationPending,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		CreatedBy: "admin-1",
	}
}

func TestInvitationController_Create(t *testing.T) {
	t.Run("returns the invitation with its link", func(t *testing.T) {
		svc := &fakeInvitationService{created: pendingInvitation("tok-1")}
		ctrl := NewInvitationController(discardLogger(), svc)

		rec := httptest.NewRecorder()
		ctrl.Create(rec, authedRequest(http.MethodPost, "/invitations", `{"email":"new@example.com","role":"guest"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		data, apiErr := decodeEnvelope(t, rec)
		require.Nil(t, apiErr)

		var resp InvitationResponse
		require.NoError(t, json.Unmarshal(data, &resp))
		assert.Equal(t, "tok-1", resp.Token)
		assert.Equal(t, "https://app.example.com/invitation/tok-1", resp.InviteURL)
		assert.Equal(t, "admin-1", svc.gotCreatorID)
		assert.Equal(t, domain.RoleGuest, svc.gotRole)
	})

	t.Run("role is optional", func(t *testing.T) {
		svc := &fakeInvitationService{created: pendingInvitation("tok-1")}
		ctrl := NewInvitationController(discardLogger(), svc)

		rec := httptest.NewRecorder()
		ctrl.Create(rec, authedRequest(http.MethodPost, "/invitations", `{"email":"new@example.com"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.Role(""), svc.gotRole)
	})

	t.Run("no identity in context", func(t *testing.T) {
		ctrl := NewInvitationController(discardLogger(), &fakeInvitationService{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/invitations", strings.NewReader(`{"email":"new@example.com"}`))
		ctrl.Create(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		ctrl := NewInvitationController(discardLogger(), &fakeInvitationService{})

		tests := []struct {
			name string
			body string
		}{
			{"missing email", `{}`},
			{"bad email", `{"email":"not-an-email"}`},
			{"unknown role", `{"email":"a@example.com","role":"owner"}`},
			{"unknown field", `{"email":"a@example.com","extra":1}`},
			{"malformed json", `{`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				ctrl.Create(rec, authedRequest(http.MethodPost, "/invitations", tt.body))
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &fakeInvitationService{createErr: fmt.Errorf("storing invitation: boom")}
		ctrl := NewInvitationController(discardLogger(), svc)

		rec := httptest.NewRecorder()
		ctrl.Create(rec, authedRequest(http.MethodPost, "/invitations", `{"email":"new@example.com"}`))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		_, apiErr := decodeEnvelope(t, rec)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeInternalError, apiErr.Code)
	})
}

func TestInvitationController_List(t *testing.T) {
	svc := &fakeInvitationService{invitations: []*domain.Invitation{pendingInvitation("tok-1"), pendingInvitation("tok-2")}}
	ctrl := NewInvitationController(discardLogger(), svc)

	rec := httptest.NewRecorder()
	ctrl.List(rec, authedRequest(http.MethodGet, "/invitations", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := decodeEnvelope(t, rec)
	var invs []*domain.Invitation
	require.NoError(t, json.Unmarshal(data, &invs))
	assert.Len(t, invs, 2)
}

func TestInvitationController_GetByToken(t *testing.T) {
	svc := &fakeInvitationService{lookup: map[string]*domain.Invitation{"tok-1": pendingInvitation("tok-1")}}
	ctrl := NewInvitationController(discardLogger(), svc)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/invitations/tok-1", nil)
		req.SetPathValue("token", "tok-1")
		rec := httptest.NewRecorder()
		ctrl.GetByToken(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		data, _ := decodeEnvelope(t, rec)
		var inv domain.Invitation
		require.NoError(t, json.Unmarshal(data, &inv))
		assert.Equal(t, "new@example.com", inv.Email)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/invitations/nope", nil)
		req.SetPathValue("token", "nope")
		rec := httptest.NewRecorder()
		ctrl.GetByToken(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		_, apiErr := decodeEnvelope(t, rec)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeNotFound, apiErr.Code)
	})
}

func TestInvitationController_Accept(t *testing.T) {
	newUser := &domain.User{ID: "user-1", Email: "new@example.com", Name: "new", Role: domain.RoleGuest}

	accept := func(svc *fakeInvitationService, token, body string) *httptest.ResponseRecorder {
		ctrl := NewInvitationController(discardLogger(), svc)
		req := httptest.NewRequest(http.MethodPost, "/invitations/"+token+"/accept", strings.NewReader(body))
		req.SetPathValue("token", token)
		rec := httptest.NewRecorder()
		ctrl.Accept(rec, req)
		return rec
	}

	t.Run("creates the account", func(t *testing.T) {
		svc := &fakeInvitationService{
			lookup:   map[string]*domain.Invitation{"tok-1": pendingInvitation("tok-1")},
			redeemed: newUser,
		}
		rec := accept(svc, "tok-1", `{"password":"secret1"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		data, _ := decodeEnvelope(t, rec)
		var user domain.User
		require.NoError(t, json.Unmarshal(data, &user))
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, domain.RoleGuest, user.Role)
		assert.Equal(t, "secret1", svc.gotPassword)
	})

	t.Run("password never echoes back", func(t *testing.T) {
		svc := &fakeInvitationService{
			lookup:   map[string]*domain.Invitation{"tok-1": pendingInvitation("tok-1")},
			redeemed: &domain.User{ID: "user-1", Email: "new@example.com", PasswordHash: "bcrypt-hash", Salt: "salt"},
		}
		rec := accept(svc, "tok-1", `{"password":"secret1"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "bcrypt-hash")
		assert.NotContains(t, rec.Body.String(), "salt")
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := accept(&fakeInvitationService{}, "nope", `{"password":"secret1"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("already used", func(t *testing.T) {
		svc := &fakeInvitationService{redeemErr: domain.ErrInvitationUsed}
		rec := accept(svc, "tok-1", `{"password":"secret1"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		_, apiErr := decodeEnvelope(t, rec)
		require.NotNil(t, apiErr)
		assert.Equal(t, helpers.ErrCodeConflict, apiErr.Code)
	})

	t.Run("email already registered", func(t *testing.T) {
		svc := &fakeInvitationService{redeemErr: domain.ErrDuplicateEmail}
		rec := accept(svc, "tok-1", `{"password":"secret1"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := accept(&fakeInvitationService{}, "tok-1", `{"password":"abc"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		rec := accept(&fakeInvitationService{}, "tok-1", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
