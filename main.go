package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"statboard/internal/config"
	"statboard/internal/controllers"
	"statboard/internal/logging"
	"statboard/internal/middleware"
	"statboard/internal/routes"
	"statboard/internal/services"
	"statboard/internal/store"
)

const defaultConfigPath = "statboard.yaml"

func main() {
	os.Exit(realMain())
}

func realMain() int {
	configPath := flag.String("config", "", "path to the YAML config file (default $STATBOARD_CONFIG or "+defaultConfigPath+")")
	issueToken := flag.String("issue-token", "", "print a viewer token for the live feed and exit")
	flag.Parse()

	cfg := loadConfig(*configPath)
	config.ApplyEnvOverrides(cfg)

	closer := logging.Setup(cfg.Log)
	defer closer.Close()

	auth := services.NewAuthService(cfg.Server.TokenSecret, cfg.Server.TokenExpiry())

	if *issueToken != "" {
		return printToken(auth, *issueToken)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		return 1
	}
	if err := run(cfg, auth); err != nil {
		slog.Error("Server failed", "err", err)
		return 1
	}
	return 0
}

func printToken(auth *services.AuthService, viewer string) int {
	if !middleware.NewInputValidator().ValidateViewerName(viewer) {
		fmt.Fprintf(os.Stderr, "invalid viewer name %q\n", viewer)
		return 2
	}
	token, err := auth.GenerateToken(viewer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not issue token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "valid for %s, connect with /ws?token=<token>\n", auth.TokenExpiry())
	return 0
}

func run(cfg *config.Config, auth *services.AuthService) error {
	client, err := store.NewClient(cfg.Store)
	if err != nil {
		return err
	}
	host, project, err := store.Endpoint(cfg.Store.URL)
	if err != nil {
		return err
	}

	poller := services.NewPoller(client)
	probe := services.NewConnectionProbe(client, host, project, services.ProbeInterval)
	hub := services.NewWebSocketHub()
	go hub.Run()

	poller.Subscribe(hub.PublishDashboard)
	probe.Subscribe(hub.PublishConnection)

	ctl := &controllers.Controller{
		Poller:         poller,
		Probe:          probe,
		Auth:           auth,
		Hub:            hub,
		Security:       middleware.NewSecurityLogger(slog.Default()),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Title:          "statboard · " + project,
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := routes.NewRouter(cfg.Server, ctl)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller.Start(ctx)
	probe.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("statboard listening", "addr", cfg.Server.Addr, "store", host, "table", cfg.Store.Table)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Graceful shutdown error", "err", err)
	}

	poller.Stop()
	probe.Stop()
	hub.Stop()

	slog.Info("Server stopped")
	return nil
}

// loadConfig reads the config file from path, $STATBOARD_CONFIG or the
// default location. A missing file falls back to defaults so the server can
// run from environment variables alone.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = os.Getenv("STATBOARD_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Info("Could not load config, using defaults", "path", path, "err", err)
		return config.DefaultConfig()
	}
	slog.Info("Loaded config", "path", path)
	return cfg
}
