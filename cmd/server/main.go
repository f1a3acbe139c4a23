// Command server runs a standalone social login service: postgres-backed
// identity links, redis-backed sessions and handshake state, and the login and
// account modules mounted on one chi router.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/creatvstudio/socialauth/modules/account"
	"github.com/creatvstudio/socialauth/modules/login"
	"github.com/creatvstudio/socialauth/pkg/config"
	"github.com/creatvstudio/socialauth/pkg/logger"
	"github.com/creatvstudio/socialauth/pkg/postgres"
	"github.com/creatvstudio/socialauth/pkg/redisconn"
	"github.com/creatvstudio/socialauth/pkg/session"
	"github.com/creatvstudio/socialauth/pkg/socialauth"
)

type serverConfig struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		srvCfg   serverConfig
		pgCfg    postgres.Config
		redisCfg redisconn.Config
		flowCfg  socialauth.Config
		ghCfg    socialauth.GithubConfig
		gCfg     socialauth.GoogleConfig
	)
	if err := errors.Join(
		config.Load(&srvCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&flowCfg),
		config.Load(&ghCfg),
		config.Load(&gCfg),
	); err != nil {
		return err
	}

	log := logger.New(
		logger.WithFormat(logger.Format(srvCfg.LogFormat)),
		logger.WithAttr(logger.Component("server")),
	)

	pool, err := postgres.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	rdb, err := redisconn.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	flow := socialauth.NewFlow(flowCfg,
		postgres.NewLinkStore(pool),
		redisconn.NewStateStore(rdb),
		[]socialauth.HandshakeAdapter{
			socialauth.NewGithubAdapter(ghCfg),
			socialauth.NewGoogleAdapter(gCfg),
		},
		socialauth.WithLogger(log),
	)

	sessions := session.New(session.WithStore(session.NewRedisStore(rdb)))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Mount("/auth", login.NewHandler(flow, sessions, login.WithLogger(log)).Handle())
	r.Mount("/account", account.NewHandler(flow, sessions, account.WithLogger(log)).Handle())

	r.Get("/healthz", healthHandler(
		postgres.Healthcheck(pool),
		redisconn.Healthcheck(rdb),
	))

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "listening", "addr", srvCfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
