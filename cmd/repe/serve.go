package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repe/internal/config"
	"repe/internal/server/http"
	"repe/internal/server/service"
	"repe/internal/server/storage"
	"repe/internal/server/webserver"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

const gracefulShutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and optionally the web UI)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("api-host", "", "API server host (default localhost)")
	f.Int("api-port", 0, "API server port (default 8080)")
	f.Bool("require-auth", false, "Require a bearer token on /api routes")
	f.Bool("web", false, "Also serve the web UI")
	f.String("web-host", "", "Web UI host (default localhost)")
	f.Int("web-port", 0, "Web UI port (default 9090)")
	f.String("web-dir", "", "Directory holding the web UI (default ./web)")
	f.String("pid", "", "Optional path to write a PID file")
	f.Bool("pid-lock", false, "Lock the PID file so only one instance runs (requires --pid)")

	for key, name := range map[string]string{
		config.KeyAPIHost:        "api-host",
		config.KeyAPIPort:        "api-port",
		config.KeyAPIRequireAuth: "require-auth",
		config.KeyWebEnabled:     "web",
		config.KeyWebHost:        "web-host",
		config.KeyWebPort:        "web-port",
		config.KeyWebDir:         "web-dir",
		config.KeyPIDPath:        "pid",
		config.KeyPIDLock:        "pid-lock",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.PID.Path != "" {
		cleanup, err := managePIDFile(cfg.PID.Path, cfg.PID.Lock)
		if err != nil {
			return fmt.Errorf("manage PID file: %w", err)
		}
		defer cleanup()
		log.Printf("PID file created at: %s (lock: %v)", cfg.PID.Path, cfg.PID.Lock)
	}

	store, err := storage.Open(cfg.DatabaseURL, cfg.Dev)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if err := store.InitDB(ctx); err != nil {
		store.Close()
		return fmt.Errorf("initialize schema: %w", err)
	}
	log.Printf("Storage: %s", store.Dialect())

	secret, err := cfg.Secret()
	if err != nil {
		store.Close()
		return err
	}

	svc := service.New(store, secret)
	defer func() {
		if err := svc.Shutdown(); err != nil {
			log.Printf("Warning: failed to close storage cleanly: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunHealthCheck(ctx, service.HealthCheckInterval)

	app := http.NewFiberApp(svc, http.Config{DevMode: cfg.Dev, RequireAuth: cfg.API.RequireAuth})
	apiAddr := cfg.APIAddr()
	listenErr := make(chan error, 2)

	go func() {
		log.Printf("API listening on: http://%s", apiAddr)
		if cfg.Dev {
			log.Printf("Dev mode: relaxed rate limit, error details exposed")
		}
		if cfg.API.RequireAuth {
			log.Printf("Authentication: required (Bearer JWT)")
		}
		log.Printf("Health: http://%s/health", apiAddr)
		if err := app.Listen(apiAddr); err != nil {
			listenErr <- fmt.Errorf("api server: %w", err)
		}
	}()

	var web *fiber.App
	if cfg.Web.Enabled {
		web = webserver.New(os.DirFS(cfg.Web.Dir), "http://"+apiAddr)
		webAddr := cfg.WebAddr()
		go func() {
			log.Printf("Web UI listening on: http://%s (files: %s)", webAddr, cfg.Web.Dir)
			if err := web.Listen(webAddr); err != nil {
				listenErr <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down servers...")
	case runErr = <-listenErr:
		log.Printf("Shutting down after listen error: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}
	if web != nil {
		if err := web.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Web server forced to shutdown: %v", err)
		}
	}
	log.Println("Servers exited")
	return runErr
}
