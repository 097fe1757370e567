package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mira-coach/backend/pkg/gateway/auth"
	"github.com/mira-coach/backend/pkg/gateway/config"
	"github.com/mira-coach/backend/pkg/gateway/gemini"
	gatewayserver "github.com/mira-coach/backend/pkg/gateway/server"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	openStore    func(ctx context.Context, cfg config.Config) (store.Store, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig: config.LoadFromEnv,
		openStore:  openStore,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return store.NewMemory(), nil
	}
	return store.NewPostgres(ctx, cfg.DatabaseURL)
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runGateway(ctx context.Context, stderr io.Writer, deps gatewayDeps) error {
	if deps.loadConfig == nil || deps.openStore == nil {
		return errors.New("missing dependencies")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, stderr)

	st, err := deps.openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	gw := gatewayserver.New(cfg, logger, gatewayserver.Dependencies{
		Store:    st,
		Verifier: auth.NewJWTVerifier(cfg.JWTSecret),
		Gemini:   gemini.NewClient(cfg.GoogleAPIKey),
	})
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	storage := "postgres"
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		storage = "memory"
	}
	logger.Info("starting gateway", "addr", cfg.Addr, "store", storage, "live_model", cfg.LiveModel)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	// Stop accepting new sessions, then give the active ones time to
	// finish and record their usage.
	gw.Sessions().SetDraining(true)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer drainCancel()
	if !gw.Sessions().DrainAll(drainCtx) {
		logger.Warn("voice sessions did not drain before the deadline")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}

	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	if err := runGateway(ctx, stderr, deps); err != nil {
		fmt.Fprintf(stderr, "mira-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
