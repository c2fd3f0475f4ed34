package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"invitegate/internal/delivery/http/helpers"
	"invitegate/internal/delivery/http/middleware"
	"invitegate/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// CreateInvitationRequest is the request body for POST /invitations
type CreateInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"` // optional: "admin" or "guest" (defaults to "guest")
}

// Validate implements Validator.
func (c CreateInvitationRequest) Validate() []string {
	var errs []string
	email := strings.TrimSpace(strings.ToLower(c.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	role := strings.TrimSpace(strings.ToLower(c.Role))
	if role != "" && role != "admin" && role != "guest" {
		errs = append(errs, "role must be \"admin\" or \"guest\"")
	}
	return errs
}

// AcceptInvitationRequest is the request body for POST /invitations/{token}/accept
type AcceptInvitationRequest struct {
	Password string `json:"password"`
}

// Validate implements Validator.
func (a AcceptInvitationRequest) Validate() []string {
	var errs []string
	if a.Password == "" {
		errs = append(errs, "password is required")
	} else if len(a.Password) < 6 {
		errs = append(errs, "password must be at least 6 characters")
	}
	return errs
}

// InvitationResponse is an invitation plus its redemption link.
type InvitationResponse struct {
	*domain.Invitation
	InviteURL string `json:"invite_url"`
}

// CreateInvitationSuccessResponse is the success response envelope for POST /invitations (201).
type CreateInvitationSuccessResponse struct {
	Data  InvitationResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// GetInvitationSuccessResponse is the success response envelope for GET /invitations/{token} (200).
type GetInvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListInvitationsSuccessResponse is the success response envelope for GET /invitations (200).
type ListInvitationsSuccessResponse struct {
	Data  []*domain.Invitation `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// AcceptInvitationSuccessResponse is the success response envelope for POST /invitations/{token}/accept (201).
type AcceptInvitationSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// InvitationController handles the invitation lifecycle endpoints.
type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

// NewInvitationController creates an InvitationController with the given logger and service.
func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// Create godoc
// @Summary Create an invitation
// @Description Issue a single-use invitation for an email address with a role ("admin" or "guest", defaults to "guest"). The invitation email is sent in the background; a send failure does not fail the request.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInvitationRequest true "Invitation data"
// @Success 201 {object} controllers.CreateInvitationSuccessResponse "data contains the invitation and its invite_url"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations [post]
func (c *InvitationController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	role := domain.Role(strings.TrimSpace(strings.ToLower(req.Role)))
	inv, err := c.Service.Create(r.Context(), userID, req.Email, role)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
			return
		}
		if strings.Contains(err.Error(), "invalid email") {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, InvitationResponse{
		Invitation: inv,
		InviteURL:  c.Service.InviteURL(inv.Token),
	})
}

// List godoc
// @Summary List invitations
// @Description Returns all invitations, newest first. No pagination.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListInvitationsSuccessResponse "data contains the invitations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations [get]
func (c *InvitationController) List(w http.ResponseWriter, r *http.Request) {
	invs, err := c.Service.ListAll(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invs)
}

// GetByToken godoc
// @Summary Look up an invitation by token
// @Description Returns the invitation matching the token. No authentication required; the token itself is the credential.
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} controllers.GetInvitationSuccessResponse "data contains the invitation"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{token} [get]
func (c *InvitationController) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	inv, err := c.Service.Lookup(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}

// Accept godoc
// @Summary Redeem an invitation
// @Description Create an account from a pending invitation. The new user's email and role come from the invitation; the name defaults to the part of the email before the '@'. A token can be redeemed once.
// @Tags invitations
// @Accept json
// @Produce json
// @Param token path string true "Invitation token"
// @Param body body AcceptInvitationRequest true "Chosen password (min 6 characters)"
// @Success 201 {object} controllers.AcceptInvitationSuccessResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already used, or email already registered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{token}/accept [post]
func (c *InvitationController) Accept(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	var req AcceptInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.Redeem(r.Context(), token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvitationNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invitation not found")
		case errors.Is(err, domain.ErrInvitationUsed):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "invitation has already been used")
		case errors.Is(err, domain.ErrDuplicateEmail):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "email already registered")
		case strings.Contains(err.Error(), "password must be"):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}
