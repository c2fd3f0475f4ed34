package main

import (
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"

	"invitegate/config"
	_ "invitegate/docs"
	authadapter "invitegate/internal/adapters/auth"
	emailadapter "invitegate/internal/adapters/email"
	delivery "invitegate/internal/delivery/http"
	"invitegate/internal/delivery/http/controllers"
	"invitegate/internal/delivery/http/middleware"
	"invitegate/internal/domain"
	"invitegate/internal/repository/memory"
	"invitegate/internal/repository/postgres"
	"invitegate/internal/services"
)

const bcryptCost = 10

// @title           Invitegate API
// @version         1.0
// @description     Invitation-gated membership service: admins issue role-carrying invitations, recipients redeem a token to create an account.

// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger()

	var (
		userRepo    domain.UserRepository
		invRepo     domain.InvitationRepository
		sessionRepo domain.SessionRepository
		redeemer    domain.InvitationRedeemer
	)
	switch cfg.StoreDriver {
	case "memory":
		store := memory.NewStore()
		userRepo = store.Users()
		invRepo = store.Invitations()
		sessionRepo = store.Sessions()
		redeemer = store.Redeemer()
		logger.Warn("using in-memory store, all data is lost on shutdown")
	default:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		userRepo = postgres.NewUserRepository(db)
		invRepo = postgres.NewInvitationRepository(db)
		sessionRepo = postgres.NewSessionRepository(db)
		redeemer = postgres.NewInvitationRedeemer(db)
	}

	hasher := authadapter.NewBcryptHasher(bcryptCost)
	issuer, verifier := authadapter.NewJWTCodec(cfg.JWTSecret)

	mailer, err := emailadapter.NewMailer(cfg.Email)
	if err != nil {
		log.Fatalf("Failed to create mailer: %v", err)
	}
	emailService := services.NewEmailService(mailer, emailadapter.NewTemplateRenderer())

	authService := services.NewAuthService(userRepo, sessionRepo, hasher, issuer, verifier, cfg.JWTExpiry)
	invitationService := services.NewInvitationService(invRepo, redeemer, hasher, emailService, cfg.AppOrigin, logger)
	userService := services.NewUserService(userRepo)

	mux := delivery.NewRouter(
		logger,
		authService,
		controllers.NewAuthController(logger, authService),
		controllers.NewInvitationController(logger, invitationService),
		controllers.NewUserController(logger, userService),
	)
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	logger.Info("server starting",
		"port", cfg.Port,
		"env", cfg.Environment,
		"store", cfg.StoreDriver,
		"email_provider", cfg.Email.Provider,
	)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
