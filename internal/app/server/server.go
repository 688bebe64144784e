package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/db"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/employee"
	"paycore/internal/domain/garnishment"
	"paycore/internal/domain/payrun"
	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
	"paycore/internal/domain/ytd"
	"paycore/internal/platform/config"
	cryptoutil "paycore/internal/platform/crypto"
	"paycore/internal/platform/jobs"
	"paycore/internal/platform/logging"
	"paycore/internal/platform/metrics"
	audithandler "paycore/internal/transport/http/handlers/audit"
	authhandler "paycore/internal/transport/http/handlers/auth"
	employeeshandler "paycore/internal/transport/http/handlers/employees"
	garnishmentshandler "paycore/internal/transport/http/handlers/garnishments"
	rulesetshandler "paycore/internal/transport/http/handlers/rulesets"
	runshandler "paycore/internal/transport/http/handlers/runs"
	taxhandler "paycore/internal/transport/http/handlers/tax"
	"paycore/internal/transport/http/middleware"
)

// Run wires the whole service and blocks on the listener.
func Run() {
	cfg := config.Load()
	log := logging.New(cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatal().Err(err).Msg("seed failed")
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid encryption key")
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	jobsSvc := jobs.New(pool, log)
	jobsSvc.Start(ctx)

	rulesetStore := ruleset.NewStore(pool)
	rulesProvider := ruleset.NewCachedProvider(rulesetStore, cfg.RulesetCacheTTL, cfg.RulesetTimeout)

	employeeStore := employee.NewStore(pool, crypto)
	garnishmentStore := garnishment.NewStore(pool)
	ytdStore := ytd.NewStore(pool)
	runStore := payrun.NewStore(pool)

	runService := payrun.NewService(runStore)
	processor := payrun.NewProcessor(runStore, employeeStore, garnishmentStore, ytdStore,
		rulesProvider, cfg.PayrollWorkers, log)
	statements := payrun.NewStatementWriter(employeeStore)
	taxService := tax.NewService(rulesProvider)

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret)
	auditService := audit.New(pool)
	idempotency := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log, collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if collector != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService).RegisterRoutes(r)
		employeeshandler.NewHandler(employeeStore).RegisterRoutes(r)
		garnishmentshandler.NewHandler(garnishmentStore, employeeStore, rulesProvider).RegisterRoutes(r)
		rulesetshandler.NewHandler(rulesetStore).RegisterRoutes(r)
		taxhandler.NewHandler(taxService).RegisterRoutes(r)
		runshandler.NewHandler(runService, processor, statements, jobsSvc, collector,
			auditService, idempotency, cfg.StatementDir).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)
	})

	log.Info().Str("addr", cfg.Addr).Msg("paycore server listening")
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
