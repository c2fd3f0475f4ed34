package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"invitegate/internal/delivery/http/controllers"
	"invitegate/internal/delivery/http/middleware"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	logger *slog.Logger,
	verifier middleware.SessionVerifier,
	authController *controllers.AuthController,
	invitationController *controllers.InvitationController,
	userController *controllers.UserController,
) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("POST /auth/logout", requireAuth(authController.Logout))
	mux.HandleFunc("GET /auth/me", requireAuth(authController.Me))

	// Invitations. Lookup and accept are unauthenticated: the token is the credential.
	mux.HandleFunc("POST /invitations", requireAuth(invitationController.Create))
	mux.HandleFunc("GET /invitations", requireAuth(invitationController.List))
	mux.HandleFunc("GET /invitations/{token}", invitationController.GetByToken)
	mux.HandleFunc("POST /invitations/{token}/accept", invitationController.Accept)

	// Members
	mux.HandleFunc("GET /users", requireAuth(userController.List))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
