package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicwatch/internal/audit"
	"civicwatch/internal/jwttoken"
	"civicwatch/internal/moderation"
	"civicwatch/internal/notify"
	"civicwatch/internal/otp"
	"civicwatch/internal/platform/config"
	"civicwatch/internal/platform/httpserver"
	"civicwatch/internal/platform/logger"
	"civicwatch/internal/platform/postgres"
	platformredis "civicwatch/internal/platform/redis"
	"civicwatch/internal/ratelimit"
	"civicwatch/internal/report"
	"civicwatch/internal/station"
	httptransport "civicwatch/internal/transport/http"
	"civicwatch/internal/user"
)

const (
	tokenIssuer   = "civicwatch"
	tokenAudience = "civicwatch-api"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores: postgres when a DSN is configured, in-memory otherwise. The
	// rate limiter prefers Redis so quotas survive restarts and replicas.
	var (
		userStore    user.Store
		reportStore  report.Store
		reviewStore  report.ReviewStore
		stationStore station.Store
		auditStore   audit.Store
		txRunner     moderation.TxRunner
	)
	if db != nil {
		userStore = user.NewPostgresStore(db)
		reportStore = report.NewPostgresStore(db)
		reviewStore = report.NewPostgresReviewStore(db)
		stationStore = station.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		txRunner = moderation.NewPostgresTxRunner(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		userStore = user.NewInMemoryStore()
		reportStore = report.NewInMemoryStore()
		reviewStore = report.NewInMemoryReviewStore()
		stationStore = station.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		txRunner = moderation.NewMemoryTxRunner()
	}

	var counterStore ratelimit.CounterStore
	if redisClient != nil {
		counterStore = ratelimit.NewRedisCounterStore(redisClient.Client)
	} else {
		log.Warn("no redis URL configured, rate limit counters are in-memory")
		counterStore = ratelimit.NewInMemoryCounterStore()
	}

	limiter, err := ratelimit.New(counterStore,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimit.NewMetrics()),
	)
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(notify.NewLogSender(log), cfg.Notify.BufferSize,
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics()),
	)

	trail := audit.NewPublisher(auditStore)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)

	otpService, err := otp.NewService(otp.NewInMemoryStore(), userStore, tokens, limiter,
		otp.WithLogger(log),
		otp.WithDispatcher(dispatcher),
		otp.WithCodePolicy(ratelimit.Policy{
			Kind:   "code_request",
			Limit:  cfg.RateLimit.CodeRequestMax,
			Window: cfg.RateLimit.CodeRequestWindow,
		}),
		otp.WithTTL(cfg.OTP.TTL),
		otp.WithMaxAttempts(cfg.OTP.MaxAttempts),
	)
	if err != nil {
		log.Error("otp service init failed", "error", err)
		os.Exit(1)
	}

	reportService, err := report.NewService(reportStore, reviewStore, userStore, stationStore, limiter,
		report.WithLogger(log),
		report.WithDispatcher(dispatcher),
		report.WithMetrics(report.NewMetrics()),
		report.WithSubmissionPolicies(report.SubmissionPolicies{
			Standard: ratelimit.Policy{Kind: "report_submission", Limit: cfg.RateLimit.StandardDailyMax, Window: cfg.RateLimit.SubmissionWindow},
			Trusted:  ratelimit.Policy{Kind: "report_submission", Limit: cfg.RateLimit.TrustedDailyMax, Window: cfg.RateLimit.SubmissionWindow},
		}),
	)
	if err != nil {
		log.Error("report service init failed", "error", err)
		os.Exit(1)
	}

	moderationService, err := moderation.NewService(reportStore, reviewStore, userStore, stationStore, trail, txRunner,
		moderation.WithLogger(log),
		moderation.WithDispatcher(dispatcher),
		moderation.WithMetrics(moderation.NewMetrics()),
	)
	if err != nil {
		log.Error("moderation service init failed", "error", err)
		os.Exit(1)
	}

	stationService, err := station.NewService(stationStore, trail, station.WithLogger(log))
	if err != nil {
		log.Error("station service init failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Validator:  jwttoken.NewServiceAdapter(tokens),
		Reports:    httptransport.NewReportHandler(reportService, log),
		Moderation: httptransport.NewModerationHandler(moderationService, log),
		Auth:       httptransport.NewAuthHandler(otpService, log),
		Stations:   httptransport.NewStationHandler(stationService, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	// Background loops stop when this context is cancelled; the dispatcher
	// drains buffered notifications before returning.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(bgCtx)
	}()
	go otpService.RunSweeper(bgCtx, cfg.OTP.SweepInterval)

	go func() {
		log.Info("starting civicwatch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	bgCancel()
	select {
	case <-dispatcherDone:
	case <-ctx.Done():
		log.Warn("dispatcher drain timed out")
	}
}
