// Command server runs the library backend: session-authenticated borrowing
// over a Postgres-backed catalog, with optional Redis sessions and Kafka
// audit streaming. Without DATABASE_URL everything runs on in-memory
// stores, which is enough for local poking.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	authhandler "libris/internal/auth/handler"
	authmetrics "libris/internal/auth/metrics"
	authservice "libris/internal/auth/service"
	sessionstore "libris/internal/auth/store/session"
	userstore "libris/internal/auth/store/user"
	"libris/internal/catalog/store/item"
	"libris/internal/catalog/store/ledger"
	lendinghandler "libris/internal/lending/handler"
	lendingmetrics "libris/internal/lending/metrics"
	lendingservice "libris/internal/lending/service"
	"libris/internal/platform/config"
	"libris/internal/platform/httpserver"
	"libris/internal/platform/logger"
	"libris/internal/platform/metrics"
	"libris/internal/platform/middleware"
	"libris/internal/platform/postgres"
	platformredis "libris/internal/platform/redis"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/audit/publisher"
	auditmemory "libris/pkg/platform/audit/store/memory"
	auditpostgres "libris/pkg/platform/audit/store/postgres"
	"libris/pkg/platform/audit/worker"
	"libris/pkg/platform/middleware/requestid"
	"libris/pkg/platform/middleware/requesttime"
	"libris/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage wiring. Postgres when configured, in-memory otherwise.
	var (
		users      authservice.UserStore
		sessions   authservice.SessionStore
		items      lendingservice.ItemStore
		ledgerRows lendingservice.LedgerStore
		auditStore audit.Store
		runner     tx.Runner
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		users = userstore.NewPostgres(db)
		sessions = sessionstore.NewPostgres(db)
		items = item.NewPostgres(db)
		ledgerRows = ledger.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		runner = tx.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memItems := item.NewInMemory()
		users = userstore.NewInMemory()
		sessions = sessionstore.NewInMemory()
		items = memItems
		ledgerRows = ledger.NewInMemory(memItems)
		auditStore = auditmemory.NewInMemoryStore()
		runner = tx.NewInMemoryRunner()
	}

	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.Open(ctx, cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sessions = sessionstore.NewRedis(redisClient.Client)
		log.Info("using redis session store")
	}

	// Audit pipeline: in-process worker always, Kafka stream when configured.
	chanPublisher := publisher.NewChannelPublisher(256)
	auditWorker := worker.NewWorker(auditStore, chanPublisher.Events(), log)

	var kafkaPublisher *publisher.KafkaPublisher
	var auditSink audit.Publisher = chanPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect kafka audit publisher", "error", err)
			os.Exit(1)
		}
		kafkaPublisher = kp
		auditSink = audit.NewFanout(chanPublisher, kp)
		log.Info("audit events streaming to kafka", "topic", cfg.Kafka.Topic)
	}

	// Services.
	authSvc := authservice.NewService(users, sessions,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditSink),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithSessionTTL(cfg.SessionTTL),
	)
	lendingSvc := lendingservice.NewService(items, ledgerRows, runner,
		lendingservice.WithLogger(log),
		lendingservice.WithAuditPublisher(auditSink),
		lendingservice.WithMetrics(lendingmetrics.New()),
		lendingservice.WithRequireOwnReturn(cfg.RequireOwnReturn),
	)

	// HTTP surface.
	httpMetrics := metrics.New()
	authH := authhandler.New(authSvc, log, cfg.SessionTTL)
	lendingH := lendinghandler.New(lendingSvc, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(httpMetrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authH.Register(router)
	lendingH.Register(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(authSvc, log))
		authH.RegisterProtected(r)
		lendingH.RegisterProtected(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting libris server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := auditWorker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if kafkaPublisher != nil {
			if err := kafkaPublisher.Close(shutdownCtx); err != nil {
				log.Error("kafka publisher shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
