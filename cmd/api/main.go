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

	"callgate/internal/auth"
	"callgate/internal/callcap"
	"callgate/internal/calls"
	"callgate/internal/cdr"
	"callgate/internal/config"
	"callgate/internal/ivr"
	"callgate/internal/presence"
	"callgate/internal/routing"
	"callgate/internal/tenant"
	"callgate/pkg/logger"
	"callgate/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown; it owns the reaper lifecycle.
	// The CDR archiver gets its own context so it keeps accepting records
	// until the HTTP server has finished draining status callbacks.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	tenantCfgs := tenant.Seed()
	if cfg.Tenants.File != "" {
		tenantCfgs, err = tenant.Load(cfg.Tenants.File)
		if err != nil {
			log.Error("tenant catalog load failed", "err", err)
			os.Exit(1)
		}
	}
	directory, err := tenant.NewDirectory(tenantCfgs)
	if err != nil {
		log.Error("tenant catalog invalid", "err", err)
		os.Exit(1)
	}
	log.Info("tenant catalog loaded", "tenants", len(directory.IDs()))

	// Optional CDR sink.
	var sink calls.Sink
	archiverStop := func() {}
	if cfg.DB.Enabled() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		archiver := cdr.NewArchiver(db, log)
		archiverCtx, archiverCancel := context.WithCancel(context.Background())
		archiverDone := make(chan struct{})
		go func() {
			defer close(archiverDone)
			archiver.Run(archiverCtx)
		}()
		archiverStop = func() {
			archiverCancel()
			<-archiverDone
		}
		sink = archiver
		log.Info("cdr sink enabled")
	}

	// Optional per-tenant concurrent call cap.
	var caps ivr.CallCap
	if cfg.Redis.Enabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		rc, err := callcap.New(rdb, cfg.Redis.CallLimit, 0)
		if err != nil {
			log.Error("call cap init failed", "err", err)
			os.Exit(1)
		}
		caps = rc
		log.Info("call cap enabled", "limit", cfg.Redis.CallLimit)
	}

	hub := presence.NewHub()
	registry := presence.NewRegistry(directory, hub)
	callStore := calls.NewStore(sink)
	engine := routing.NewEngine(directory, registry, cfg.Tenants.DefaultCallerID)

	flow := &ivr.Flow{
		Directory: directory,
		Engine:    engine,
		Calls:     callStore,
		Caps:      caps,
		Timings: ivr.Timings{
			DigitTimeoutSeconds: cfg.IVR.DigitTimeoutSeconds,
			RingTimeoutSeconds:  cfg.IVR.RingTimeoutSeconds,
			VoicemailMaxSeconds: cfg.IVR.VoicemailMaxSeconds,
		},
		Steps: ivr.Steps{
			GatherPath:  "/webhooks/twilio/gather",
			DefaultPath: "/webhooks/twilio/default",
			StatusPath:  "/webhooks/twilio/status",
		},
	}

	reaper := &presence.Reaper{
		Registry: registry,
		Interval: cfg.Reap.Interval,
		TTL:      cfg.Reap.SessionTTL,
		Log:      log,
	}
	go reaper.Run(rootCtx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		Auth:      authManager,
		Directory: directory,
		Registry:  registry,
		Calls:     callStore,
		Hub:       hub,
		Flow:      flow,
		Caps:      caps,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env)
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

	// In-flight status callbacks have been served; flush what they enqueued.
	archiverStop()
}
