package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/praxishq/praxis-auth/internal/auth/http"
	"github.com/praxishq/praxis-auth/internal/auth/mail"
	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/internal/auth/store/drivers/sqlite"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	signerCfg jwtx.Config
	mailer    mail.Mailer

	// Services
	loginService        *service.LoginService
	mfaService          *service.MFAService
	tokenService        *service.TokenService
	authorizeService    *service.AuthorizeService
	resetService        *service.PasswordResetService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	app.signerCfg = jwtx.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.Issuer,
	}
	if err := app.signerCfg.Validate(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	// Load registered OAuth clients and seed users before accepting traffic
	if err := app.seedClients(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.seedUsers(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initMailer picks the SMTP relay when one is configured, otherwise falls
// back to logging mail bodies. Dev environments rarely run a relay.
func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.logger.Info("no SMTP relay configured, mail will be logged")
		app.mailer = mail.LogMailer{}
		return nil
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = mailer
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	signer := jwtx.NewSigner(app.signerCfg)

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Mailer: app.mailer,
		Issuer: app.cfg.Issuer,
		OTPTTL: app.cfg.OTPTTL,
	}

	app.loginService = &service.LoginService{
		Store:      app.db,
		Signer:     signer,
		MFA:        app.mfaService,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.tokenService = &service.TokenService{
		Signer:         signer,
		Store:          app.db,
		Issuer:         app.cfg.Issuer,
		SessionTTL:     app.cfg.SessionTTL,
		ClientTokenTTL: app.cfg.ClientTokenTTL,
	}

	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
	}

	app.resetService = &service.PasswordResetService{
		Store:        app.db,
		Mailer:       app.mailer,
		ResetURLBase: app.cfg.ResetURLBase,
		ResetTTL:     app.cfg.ResetTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		jwtx.NewVerifier(app.signerCfg),
		app.signerCfg,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.LoginURL = app.cfg.LoginURL
	router.LoginService = app.loginService
	router.MFAService = app.mfaService
	router.TokenService = app.tokenService
	router.AuthorizeService = app.authorizeService
	router.ResetService = app.resetService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
