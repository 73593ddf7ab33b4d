package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-backoffice/internal/audit"
	"inspection-backoffice/internal/auth"
	"inspection-backoffice/internal/config"
	"inspection-backoffice/internal/httpapi"
	"inspection-backoffice/internal/identity"
	"inspection-backoffice/internal/metrics"
	"inspection-backoffice/internal/ratelimit"
	"inspection-backoffice/internal/records"
	"inspection-backoffice/pkg/logger"
	"inspection-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := utils.EnsureSchema(rootCtx, db, identity.Schema, records.Schema, audit.Schema); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter, closeLimiter, err := newLimiter(rootCtx, cfg)
	if err != nil {
		log.Error("rate limiter init failed", "err", err)
		os.Exit(1)
	}
	defer closeLimiter()

	users := identity.NewPGStore(db)
	auditSvc := audit.NewService(audit.NewPGRepo(db))

	// No verified admin means nobody can provision accounts; refuse to start.
	if _, err := auth.EnsureAdmin(rootCtx, users, cfg.Bootstrap, auditSvc); err != nil {
		log.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}

	validator := auth.NewValidator(tokens, users,
		auth.WithAudit(auditSvc),
		auth.WithObserver(m),
		auth.WithStoreTimeout(cfg.Auth.StoreTimeout),
	)

	r, err := newRouter(routeDeps{
		log: log,
		handlers: httpapi.Handlers{
			Credentials: auth.NewCredentials(users, tokens, auditSvc),
			Accounts:    auth.NewAccounts(users, auditSvc),
			Records:     records.NewService(records.NewPGStore(db)),
		},
		validator:      validator,
		limiter:        limiter,
		metrics:        m,
		trustedProxies: cfg.App.TrustedProxies,
	})
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "rate_limit_backend", cfg.RateLimit.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// newLimiter picks the rate limiter backend. The returned close func is
// always safe to call.
func newLimiter(ctx context.Context, cfg config.Config) (ratelimit.Limiter, func(), error) {
	policies := ratelimit.Policies{
		General: ratelimit.Policy{Limit: cfg.RateLimit.GeneralMax, Window: cfg.RateLimit.Window},
		Auth:    ratelimit.Policy{Limit: cfg.RateLimit.AuthMax, Window: cfg.RateLimit.Window},
	}

	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return nil, func() {}, err
		}
		return ratelimit.NewRedisLimiter(rdb, policies), func() { _ = rdb.Close() }, nil
	}

	ml := ratelimit.NewMemoryLimiter(policies)
	ml.StartSweeper(ctx, time.Minute)
	return ml, func() {}, nil
}
