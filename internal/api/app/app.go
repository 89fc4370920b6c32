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

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/geo"
	httpapi "github.com/obralimpa/obralimpa/internal/api/http"
	"github.com/obralimpa/obralimpa/internal/api/notify"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/internal/api/store/drivers/sqlite"
	"github.com/obralimpa/obralimpa/pkg/jwtx"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the whole service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	keys   jwtx.KeyPair
	signer jwtx.Signer

	authService    *service.AuthService
	inviteService  *service.InviteService
	siteService    *service.SiteService
	taskService    *service.TaskService
	userService    *service.UserService
	mfaService     *service.MFAService
	userEvents     *service.UserEvents
	housekeeping   *service.HousekeepingService
	mailDispatcher *notify.Dispatcher

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "obralimpa-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initKeys(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	if err := app.bootstrapAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// bootstrapAdmin seeds the configured admin account when no users exist yet.
// It runs once per empty database and is a no-op afterwards.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" || app.cfg.BootstrapAdminPassword == "" {
		return nil
	}

	existing, err := app.db.Users().ListUsers(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	user, err := app.authService.Register(ctx,
		app.cfg.BootstrapAdminEmail,
		app.cfg.BootstrapAdminName,
		app.cfg.BootstrapAdminPassword,
		"",
	)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	if err := app.db.Users().UpdateRole(ctx, user.ID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("failed to promote bootstrap admin: %w", err)
	}

	app.logger.Info("bootstrap admin created", "user_id", user.ID)
	return nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.mailDispatcher.Start()
	app.housekeeping.Start()

	app.logger.Info("api starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests, stops the workers and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()
	app.mailDispatcher.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("api stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

// initKeys loads the signing key from the configured seed file, or generates
// an ephemeral pair. Ephemeral keys invalidate every access token across a
// restart, which the refresh flow absorbs.
func (app *Application) initKeys() error {
	var (
		keys jwtx.KeyPair
		err  error
	)
	if app.cfg.JWTSeedFile != "" {
		keys, err = jwtx.LoadKeyPairFromSeedFile(app.cfg.JWTSeedFile)
		if err != nil {
			return fmt.Errorf("failed to load JWT seed: %w", err)
		}
		app.logger.Info("loaded signing key from seed file")
	} else {
		keys, err = jwtx.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("failed to generate JWT keys: %w", err)
		}
		app.logger.Info("generated ephemeral signing key")
	}

	app.keys = keys
	app.signer = jwtx.NewEdDSASigner(keys)
	return nil
}

func (app *Application) initServices() {
	app.userEvents = service.NewUserEvents()

	var mailer notify.Mailer
	if app.cfg.SMTPHost != "" {
		mailer = &notify.SMTPMailer{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			From:     app.cfg.SMTPFrom,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
		}
	}
	app.mailDispatcher = notify.NewDispatcher(mailer, app.logger, 0)

	app.inviteService = &service.InviteService{
		Store:  app.db,
		Notify: app.mailDispatcher,
		Events: app.userEvents,
	}

	app.authService = &service.AuthService{
		Store:      app.db,
		Signer:     app.signer,
		Invites:    app.inviteService,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	var geocoder geo.Geocoder
	if app.cfg.GeocodeBaseURL != "" {
		geocoder = geo.NewClient(app.cfg.GeocodeBaseURL, app.cfg.GeocodeAPIKey)
	}
	app.siteService = &service.SiteService{
		Store:    app.db,
		Geocoder: geocoder,
	}

	app.taskService = &service.TaskService{Store: app.db}
	app.userService = &service.UserService{
		Store:  app.db,
		Events: app.userEvents,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.InviteTTL,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		jwtx.NewEdDSAVerifier(app.keys, app.cfg.Issuer),
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.InviteService = app.inviteService
	router.SiteService = app.siteService
	router.TaskService = app.taskService
	router.UserService = app.userService
	router.MFAService = app.mfaService
	router.UserEvents = app.userEvents
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
