package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"opsboard.io/internal/auth"
	"opsboard.io/internal/config"
	"opsboard.io/internal/dashboard"
	"opsboard.io/internal/httpapi"
	"opsboard.io/internal/obs"
	"opsboard.io/internal/store/pg"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		obs.Error("api exited", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.UsingDevSecret() {
		obs.Warn("JWT_SECRET not set; signing tokens with the public development secret", nil)
	}

	var (
		users     auth.UserStore
		board     dashboard.Service
		readiness httpapi.ReadinessChecker = httpapi.ReadyProbe{}
		closeDB                            = func() error { return nil }
	)
	if dsn := cfg.DSN(); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			return err
		}
		closeDB = store.Close
		users = auth.NewPGUserStore(store.DB())
		board = store
		readiness = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		obs.Warn("DATABASE_URL not set; using in-memory stores", nil)
		users = auth.NewMemoryUserStore()
		board = dashboard.NewInMemory()
	}
	defer func() { _ = closeDB() }()

	hasherOpts := []auth.HasherOption{auth.WithCost(cfg.BcryptCost)}
	if cfg.HashConcurrency > 0 {
		hasherOpts = append(hasherOpts, auth.WithMaxConcurrent(cfg.HashConcurrency))
	}
	hasher, err := auth.NewPasswordHasher(hasherOpts...)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(users, cfg.JWTSecret, auth.WithPasswordHasher(hasher))
	if err != nil {
		return err
	}

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		return err
	}
	api := httpapi.New(authSvc, board,
		httpapi.WithReadiness(readiness),
		httpapi.WithRateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		httpapi.WithTrustedProxies(proxies),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = httpapi.NewGRPCServer(authSvc, readiness)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs.Info("http listening", map[string]any{"addr": srv.Addr, "version": version})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			obs.Info("grpc listening", map[string]any{"addr": cfg.GRPCAddr})
			return grpcSrv.Serve(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		obs.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	obs.Info("stopped", nil)
	return nil
}
