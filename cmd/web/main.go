// cmd/web/main.go
//
// Login service – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (.env → conf/global.yaml → LOGIN_ env, with
//     `vault:` references resolved).
//
//  2. Start daily rotating logger (tees to console when running in a TTY or
//     when log.console is set).
//
//  3. Build the authenticator named by auth.mode:
//
//     • remote    – authclient posts credentials to auth.endpoint
//     • database  – account checks the user table over database.dsn
//
//  4. Build i18n catalog, CSRF signer, session manager, and request-info
//     resolver (GeoLite2 optional).
//
//  5. Router:
//
//     • chi RequestID, RealIP, Recoverer
//     • request logging, ForceHTTPS, security headers, request info
//     • /metrics (Prometheus), /healthz, and the auth component at “/”
//
//  6. Serve until SIGINT or SIGTERM, then shut down gracefully.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/loginform/components/auth"
	"github.com/yanizio/loginform/internal/account"
	"github.com/yanizio/loginform/internal/authclient"
	"github.com/yanizio/loginform/internal/component"
	"github.com/yanizio/loginform/internal/config"
	"github.com/yanizio/loginform/internal/database"
	"github.com/yanizio/loginform/internal/form"
	"github.com/yanizio/loginform/internal/i18n"
	"github.com/yanizio/loginform/internal/logger"
	"github.com/yanizio/loginform/internal/login"
	"github.com/yanizio/loginform/internal/middleware"
	"github.com/yanizio/loginform/internal/requestinfo"
	"github.com/yanizio/loginform/internal/server"
	"github.com/yanizio/loginform/internal/session"
)

const shutdownGrace = 10 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("login service: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, cfg.Log.Console || runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Authenticator ───────────────────────────────────────────────
	//
	authn, closeAuth, err := buildAuthenticator(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer closeAuth()

	//
	// ── 4.  Request-scoped services ─────────────────────────────────────
	//
	catalog, err := i18n.New(cfg.I18n.DefaultLocale)
	if err != nil {
		return err
	}
	csrf, err := form.NewCSRF(keyOrNil(cfg.CSRF.Key))
	if err != nil {
		return fmt.Errorf("csrf: %w", err)
	}
	sessions, err := session.NewManager(keyOrNil(cfg.Session.Key), cfg.Session.TTL)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if cfg.CSRF.Key == "" || cfg.Session.Key == "" {
		logOut.Warn("csrf or session key not configured; using random keys, pages expire on restart")
	}
	resolver, err := requestinfo.NewResolver(cfg.GeoIP.DBPath)
	if err != nil {
		return err
	}
	defer resolver.Close()

	comp, err := auth.New(auth.Deps{
		Auth:            authn,
		Catalog:         catalog,
		CSRF:            csrf,
		Sessions:        sessions,
		SuccessRedirect: cfg.Auth.SuccessRedirect,
		AuthTimeout:     cfg.Auth.Timeout * time.Duration(cfg.Auth.Retries+1),
	})
	if err != nil {
		return err
	}
	component.Register(comp)

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logging(logOut))
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)
	r.Use(resolver.Enrich)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if err := component.Mount(r); err != nil {
		return err
	}

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logOut.Infow("listening", "addr", srv.Addr, "auth_mode", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logOut.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// buildAuthenticator returns the authenticator for cfg.Auth.Mode and a
// function releasing its resources.
func buildAuthenticator(ctx context.Context, cfg *config.Config, l *zap.SugaredLogger) (login.Authenticator, func(), error) {
	switch cfg.Auth.Mode {
	case config.ModeDatabase:
		db, err := database.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		l.Info("user database online")
		return account.NewService(db, cfg.Auth.SuccessRedirect), func() { _ = db.Close() }, nil

	default:
		c, err := authclient.New(authclient.Options{
			Endpoint: cfg.Auth.Endpoint,
			Timeout:  cfg.Auth.Timeout,
			RetryMax: cfg.Auth.Retries,
			Logger:   l.Named("authclient"),
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
}

// keyOrNil turns an unset key into nil so the consumer draws a random one.
func keyOrNil(k string) []byte {
	if k == "" {
		return nil
	}
	return []byte(k)
}
