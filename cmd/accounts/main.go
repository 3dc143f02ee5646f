package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/mailer"
	"github.com/goliatone/go-accounts/persistence"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	db       *bun.DB
	accounts *accounts.Accounts
	srv      *fiber.App
	logger   *accounts.SlogLogger
}

func (a *App) GetLogger(name string) accounts.Logger {
	return a.logger.With("component", name)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("accounts stopped", "error", err)
		os.Exit(1)
	}
}

// run wires and serves the app until a signal arrives. Every deferred
// cleanup runs before it returns.
func run(args []string) error {
	flags := flag.NewFlagSet("accounts", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to an optional config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.WithConfigFile(*configFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	lgr := accounts.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Debug {
		lgr.Debug("config loaded", "config", print.MaybePrettyJSON(redactConfig(*cfg)))
	}

	app := &App{config: cfg, logger: lgr}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := WithPersistence(ctx, app); err != nil {
		return fmt.Errorf("set up persistence: %w", err)
	}
	defer app.db.Close()

	if err := WithAccounts(ctx, app); err != nil {
		return fmt.Errorf("set up accounts: %w", err)
	}

	WithHTTPServer(app)

	errc := make(chan error, 1)
	go func() {
		lgr.Info("listening", "addr", cfg.HTTP.Addr)
		errc <- app.srv.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		lgr.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.srv.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := persistence.OpenAndMigrate(ctx, persistence.Options{
		Driver: app.config.DB.Driver,
		DSN:    app.config.DatabaseDSN(),
		Debug:  app.config.Debug,
	}, app.GetLogger("persistence"))
	if err != nil {
		return err
	}

	app.db = db
	return nil
}

func WithAccounts(ctx context.Context, app *App) error {
	cfg := app.config

	svc := accounts.NewAccounts(accounts.NewRepositoryManager(app.db), cfg).
		WithLogger(app.GetLogger("accounts")).
		WithActivitySink(accounts.LogActivitySink(app.GetLogger("activity")))

	if cfg.Mail.Send {
		m, err := mailer.New(mailer.Options{
			Host:         cfg.Mail.Host,
			Port:         cfg.Mail.Port,
			User:         cfg.Mail.User,
			Password:     cfg.Mail.Password,
			From:         cfg.Mail.From,
			BaseURL:      cfg.BaseURL,
			ConfirmPath:  cfg.Mail.ConfirmPath,
			ResetPath:    cfg.Mail.ResetPath,
			TemplatesDir: cfg.Mail.TemplatesDir,
		})
		if err != nil {
			return err
		}
		svc.WithMailer(m.WithLogger(app.GetLogger("mailer")))
	}

	if cfg.Admin.Email != "" {
		created, err := svc.EnsureAdmin(ctx, accounts.BootstrapAdminMessage{
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return err
		}
		if !created {
			app.logger.Debug("admin account already present", "email", cfg.Admin.Email)
		}
	}

	app.accounts = svc
	return nil
}

func WithHTTPServer(app *App) {
	srv := fiber.New(fiber.Config{
		AppName:           "go-accounts",
		ErrorHandler:      accounts.FiberErrorHandler(app.GetLogger("http"), app.config.Debug),
		EnablePrintRoutes: app.config.Debug,
	})

	srv.Use(recover.New())
	srv.Use(logger.New())

	accounts.RegisterHealthRoute(srv, app.accounts.Repository())

	auth := accounts.NewRouteAuthenticator(app.accounts, app.config).
		WithLogger(app.GetLogger("auth"))

	accounts.RegisterRoutes(srv, app.accounts, auth,
		accounts.WithAuthControllerDebug(app.config.Debug),
		accounts.WithAuthControllerLogger(app.GetLogger("auth:ctrl")),
	)

	app.srv = srv
}

func redactConfig(cfg config.Config) config.Config {
	mask := func(s string) string {
		if s == "" {
			return s
		}
		return "***"
	}
	cfg.JWT.Secret = mask(cfg.JWT.Secret)
	cfg.DB.Password = mask(cfg.DB.Password)
	cfg.Mail.Password = mask(cfg.Mail.Password)
	cfg.Admin.Password = mask(cfg.Admin.Password)
	return cfg
}
