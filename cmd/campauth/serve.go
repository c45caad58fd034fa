// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/internal/auth/memory"
	"github.com/socialcamp/campauth/internal/auth/postgres"
	authredis "github.com/socialcamp/campauth/internal/auth/redis"
	"github.com/socialcamp/campauth/internal/config"
	"github.com/socialcamp/campauth/internal/logging"
	"github.com/socialcamp/campauth/internal/web"
	"github.com/socialcamp/campauth/pkg/errutil"
)

const (
	serviceName     = "campauth"
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
	readinessPing   = time.Second
)

// newServeCmd creates the serve subcommand.
func newServeCmd(deps *Deps) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long: `Start the HTTP server for registration, signin, signout and login
checks, plus the metrics and health endpoints when metrics.addr is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, autoMigrate, cmd, deps)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations before serving")
	return cmd
}

// backends holds the stores selected by configuration.
type backends struct {
	users    auth.UserRepository
	sessions auth.SessionRegistry
	// sweeper is nil when the registry expires entries on its own.
	sweeper auth.ExpiredSessionDeleter
	pings   []func(ctx context.Context) error
	closers []func()
}

func (b *backends) ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, readinessPing)
	defer cancel()
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return false
		}
	}
	return true
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, deps *Deps) (*backends, error) {
	b := &backends{}

	if cfg.NeedsDatabase() {
		pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		b.pings = append(b.pings, pool.Ping)
		b.closers = append(b.closers, pool.Close)

		if cfg.Store.Backend == config.BackendPostgres {
			b.users = postgres.NewUserRepository(pool)
		}
		if cfg.Session.Backend == config.BackendPostgres {
			reg := postgres.NewSessionRegistry(pool, cfg.Session.TTL)
			b.sessions, b.sweeper = reg, reg
		}
	}

	if cfg.Store.Backend == config.BackendMemory {
		b.users = memory.NewUserRepository()
	}

	switch cfg.Session.Backend {
	case config.BackendMemory:
		reg := memory.NewSessionRegistry(cfg.Session.TTL)
		b.sessions, b.sweeper = reg, reg
	case config.BackendRedis:
		client, err := deps.RedisFactory(ctx, cfg.Redis.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.pings = append(b.pings, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.sessions = authredis.NewSessionRegistry(client, cfg.Session.TTL)
	}

	return b, nil
}

func runAutoMigrate(databaseURL string, factory MigratorFactory) error {
	m, err := factory(databaseURL)
	if err != nil {
		return err
	}
	upErr := m.Up()
	closeErr := m.Close()
	if upErr != nil {
		return upErr
	}
	if closeErr != nil {
		slog.Warn("failed to close migrator", "error", closeErr)
	}
	return nil
}

// runServe wires the configured stores into the auth service and serves it
// until ctx ends or SIGINT/SIGTERM arrives.
func runServe(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, deps.LogOutput, logging.WithLevel(level))

	logger.Info("starting campauth",
		"http_addr", cfg.HTTP.Addr,
		"store_backend", cfg.Store.Backend,
		"session_backend", cfg.Session.Backend,
		"session_ttl", cfg.Session.TTL.String(),
	)

	if autoMigrate && cfg.NeedsDatabase() {
		if err := runAutoMigrate(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
		}
		logger.Info("database migrations applied")
	}

	stores, err := openBackends(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer stores.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	svcOpts := []auth.Option{auth.WithLogger(logger), auth.WithHashConcurrency(cfg.Auth.HashConcurrency)}
	webOpts := []web.Option{
		web.WithLogger(logger),
		web.WithSecureCookies(cfg.HTTP.CookieSecure),
		web.WithAllowedOrigins(cfg.HTTP.AllowedOrigins),
	}
	if cfg.HTTP.RateLimit.Enabled() {
		limiter := web.NewRateLimiter(web.RateLimiterConfig{
			Burst:     cfg.HTTP.RateLimit.Burst,
			PerSecond: cfg.HTTP.RateLimit.PerSecond,
		})
		defer limiter.Close()
		webOpts = append(webOpts, web.WithRateLimiter(limiter))
	}

	rules, err := cfg.Auth.Rules()
	if err != nil {
		return err
	}
	svcOpts = append(svcOpts, auth.WithRules(rules))

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			return ready.Load() && stores.ready(ctx)
		})
		if m := obsServer.Metrics(); m != nil {
			svcOpts = append(svcOpts, auth.WithMetrics(m))
			webOpts = append(webOpts, web.WithMetrics(m))
		}
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	svc, err := auth.NewAuthService(stores.users, stores.sessions, auth.NewArgon2idHasher(), svcOpts...)
	if err != nil {
		stopObservability(obsServer)
		return err
	}
	handler, err := web.NewHandler(svc, webOpts...)
	if err != nil {
		stopObservability(obsServer)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpSrv := &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	var sweepers sync.WaitGroup
	if cfg.Session.TTL > 0 && stores.sweeper != nil {
		sweepers.Add(1)
		go func() {
			defer sweepers.Done()
			auth.RunSessionSweeper(ctx, stores.sweeper, sweepInterval, logger)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("campauth started")
	logger.Info("campauth ready", "http_addr", listener.Addr().String())

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr = <-errChan:
		errutil.LogError(logger, "http server error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err.Error())
	}
	stopObservability(obsServer)
	cancel()
	sweepers.Wait()

	logger.Info("shutdown complete")
	if serveErr != nil {
		return oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	}
	return nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err.Error())
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel is closed or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err.Error(),
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
