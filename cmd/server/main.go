package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/commentflow/outreach-server-go/internal/channel"
	"github.com/commentflow/outreach-server-go/internal/config"
	"github.com/commentflow/outreach-server-go/internal/database"
	"github.com/commentflow/outreach-server-go/internal/handler"
	"github.com/commentflow/outreach-server-go/internal/jobs"
	"github.com/commentflow/outreach-server-go/internal/middleware"
	"github.com/commentflow/outreach-server-go/internal/model"
	"github.com/commentflow/outreach-server-go/internal/redis"
	"github.com/commentflow/outreach-server-go/internal/repository"
	"github.com/commentflow/outreach-server-go/internal/service"
	"github.com/commentflow/outreach-server-go/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	cancel()
	log.Info().Msg("database ready")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	customerRepo := repository.NewCustomerRepository(db.DB)
	businessRepo := repository.NewBusinessRepository(db.DB)
	actionRepo := repository.NewActionRepository(db.DB)
	accountRepo := repository.NewExecutionAccountRepository(db.DB)
	usageRepo := repository.NewUsageLedgerRepository(db.DB)
	contentRepo := repository.NewContentItemRepository(db.DB)
	providerDirectory := repository.NewProviderDirectory(db.DB)

	channels := map[model.ChannelKind]channel.Channel{
		model.ChannelKindPanel:    channel.NewPanelChannel(cfg.PanelEndpoint, cfg.APIBudget()),
		model.ChannelKindProxyAPI: channel.NewProxyAPIChannel(cfg.ProxyAPIEndpoint, cfg.APIBudget()),
		model.ChannelKindBrowser:  channel.NewBrowserChannel(cfg.BrowserLoginURL, cfg.BrowserHeadless, cfg.BrowserBinPath, cfg.BrowserBudget()),
	}

	identityService := service.NewIdentityService(customerRepo)
	quotaService := service.NewQuotaService(usageRepo)
	actionService := service.NewActionService(actionRepo, businessRepo, quotaService)
	accountService := service.NewAccountService(accountRepo, actionRepo)
	locker := service.NewAccountLocker(redisClient.Client)
	rotationManager := service.NewRotationManager(accountRepo, locker, cfg.AccountLeaseTTL())
	selector := service.NewReplacementSelector(contentRepo)
	executionService := service.NewExecutionService(
		actionService, actionRepo, businessRepo, providerDirectory,
		quotaService, rotationManager, selector, channels,
	)

	authMiddleware := middleware.NewAuthMiddleware(customerRepo, identityService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client)

	actionHandler := handler.NewActionHandler(actionService, executionService)
	usageHandler := handler.NewUsageHandler(quotaService)
	adminHandler := handler.NewAdminHandler(accountService, cfg.StuckThreshold())

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.BodyLimit(0))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/actions", actionHandler.Routes())
		r.Mount("/usage", usageHandler.Routes())
		r.Mount("/admin", adminHandler.Routes())
	})

	reconcileJob := jobs.NewReconcileJob(
		actionRepo, businessRepo, quotaService,
		cfg.StuckThreshold(), config.ReconcileJobInterval,
	)
	reconcileJob.Start()
	defer reconcileJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// Browser executions can hold a request near the full budget.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
