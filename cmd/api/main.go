package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-yard/internal/audit"
	"github.com/noah-isme/backend-yard/internal/auth"
	"github.com/noah-isme/backend-yard/internal/billing"
	"github.com/noah-isme/backend-yard/internal/booking"
	"github.com/noah-isme/backend-yard/internal/client"
	"github.com/noah-isme/backend-yard/internal/config"
	"github.com/noah-isme/backend-yard/internal/db"
	"github.com/noah-isme/backend-yard/internal/events"
	"github.com/noah-isme/backend-yard/internal/health"
	"github.com/noah-isme/backend-yard/internal/inventory"
	"github.com/noah-isme/backend-yard/internal/jobs"
	"github.com/noah-isme/backend-yard/internal/lock"
	"github.com/noah-isme/backend-yard/internal/obs"
	"github.com/noah-isme/backend-yard/internal/ratelimit"
	"github.com/noah-isme/backend-yard/internal/rates"
	"github.com/noah-isme/backend-yard/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "yard")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "yard-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(initCtx, cfg.DatabaseURL, "yard-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	bus := &events.Bus{Store: events.NewPgStore(pool)}

	authService, err := auth.NewService(auth.Config{
		Users:          auth.NewPgUserStore(pool),
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Svc: authService, Validate: validate}
	authMiddleware := auth.Middleware{Service: authService}

	auditService := audit.Service{
		Store:        audit.NewPgStore(pool),
		Enabled:      cfg.AuditEnabled,
		SamplingRate: cfg.AuditSamplingRate,
	}
	auditHandler := audit.Handler{Store: auditService.Store}
	auditHTTP := audit.HTTPRecorder{
		Service: auditService,
		OnError: func(err error) {
			logger.Error().Err(err).Msg("record audit entry")
		},
	}

	rateStore := rates.NewPgStore(pool)
	rateService := &rates.Service{
		Store: rateStore,
		Cache: rates.NewCache(redisClient, cfg.RateCacheTTL),
	}
	rateHandler := &rates.Handler{Store: rateStore, Svc: rateService, Validate: validate}

	movementStore := inventory.NewPgStore(pool)
	gateService := &inventory.Service{
		Store:  movementStore,
		Locker: lock.Locker{R: redisClient, RetryBackoff: 50 * time.Millisecond},
		Bus:    bus,
		Log:    logger,
	}
	inventoryHandler := &inventory.Handler{Store: movementStore, Svc: gateService, Validate: validate}

	billingService := &billing.Service{
		Movements:  movementStore,
		Rates:      rateService,
		MaxRecords: cfg.BillingMaxRecords,
	}
	billingHandler := &billing.Handler{
		Svc:        billingService,
		Audit:      auditService,
		Statements: jobs.Enqueuer{Client: asynqClient, Queue: cfg.StatementQueue},
	}
	statementHandler := jobs.Handler{Statements: jobs.NewPgStatementStore(pool)}

	clientHandler := &client.Handler{Store: client.NewPgStore(pool), Validate: validate}

	bookingStore := booking.NewPgStore(pool)
	bookingService := &booking.Service{Store: bookingStore, Bus: bus, Log: logger}
	bookingHandler := &booking.Handler{Store: bookingStore, Svc: bookingService, Validate: validate}

	reportHandler := &report.Handler{Source: report.NewPgSource(pool)}

	limiterMiddleware, err := ratelimit.New(redisClient, ratelimit.PerMinute(cfg.RateLimitPerMinute))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	limiterMiddleware.OnError = func(err error) {
		logger.Error().Err(err).Msg("rate limiter backend")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(limiterMiddleware.Handle)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    500 * time.Millisecond,
		RedisTimeout: 300 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.Post("/login", authHandler.Login)
			a.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/me", authHandler.Me)
				protected.With(
					authMiddleware.RequireRole(auth.RoleAdmin),
					auditHTTP.Middleware(audit.HTTPConfig{Action: "user.register", ResourceType: "users"}),
				).Post("/register", authHandler.Register)
			})
		})

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)

			g.Route("/clients", func(c chi.Router) {
				c.Get("/", clientHandler.List)
				c.Get("/{id}", clientHandler.Get)
				c.Group(func(w chi.Router) {
					w.Use(authMiddleware.RequireRole(auth.RoleBilling))
					w.Use(auditHTTP.Middleware(audit.HTTPConfig{ResourceType: "clients", ResourceIDParam: "id"}))
					w.Post("/", clientHandler.Create)
					w.Put("/{id}", clientHandler.Update)
					w.Delete("/{id}", clientHandler.Delete)
				})
				c.With(authMiddleware.RequireRole(auth.RoleBilling)).Get("/{clientID}/statements", statementHandler.ListByClient)
			})

			g.Route("/bookings", func(b chi.Router) {
				b.Get("/", bookingHandler.List)
				b.Get("/{id}", bookingHandler.Get)
				b.With(authMiddleware.RequireRole(auth.RoleGate, auth.RoleBilling)).Post("/", bookingHandler.Create)
				b.With(
					authMiddleware.RequireRole(auth.RoleGate, auth.RoleBilling),
					auditHTTP.Middleware(audit.HTTPConfig{Action: "booking.transition", ResourceType: "bookings", ResourceIDParam: "id"}),
				).Post("/{id}/transition", bookingHandler.Transition)
			})

			g.Route("/movements", func(m chi.Router) {
				m.Get("/", inventoryHandler.List)
				m.Get("/{id}", inventoryHandler.Get)
				m.With(
					authMiddleware.RequireRole(auth.RoleGate),
					auditHTTP.Middleware(audit.HTTPConfig{Action: "gate.in", ResourceType: "movements"}),
				).Post("/gate-in", inventoryHandler.GateIn)
				m.With(
					authMiddleware.RequireRole(auth.RoleGate),
					auditHTTP.Middleware(audit.HTTPConfig{Action: "gate.out", ResourceType: "movements"}),
				).Post("/gate-out", inventoryHandler.GateOut)
			})

			g.Route("/rates", func(t chi.Router) {
				t.Get("/", rateHandler.List)
				t.Group(func(w chi.Router) {
					w.Use(authMiddleware.RequireRole(auth.RoleBilling))
					w.Use(auditHTTP.Middleware(audit.HTTPConfig{ResourceType: "rates", ResourceIDParam: "id"}))
					w.Post("/", rateHandler.Create)
					w.Put("/{id}", rateHandler.Update)
					w.Delete("/{id}", rateHandler.Delete)
				})
			})

			g.Route("/billing", func(b chi.Router) {
				b.Use(authMiddleware.RequireRole(auth.RoleBilling))
				b.Get("/run", billingHandler.Run)
				b.Get("/export", billingHandler.Export)
				b.Post("/statements", billingHandler.EnqueueStatement)
			})

			g.Route("/reports", func(rep chi.Router) {
				rep.Get("/occupancy", reportHandler.Occupancy)
				rep.Get("/gate-activity", reportHandler.GateActivity)
			})

			g.With(authMiddleware.RequireRole(auth.RoleAdmin)).Get("/admin/audit-logs", auditHandler.List)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
