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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"remitpool/internal/audit"
	"remitpool/internal/compliance"
	compliancehandler "remitpool/internal/compliance/handler"
	compliancemetrics "remitpool/internal/compliance/metrics"
	"remitpool/internal/escrow"
	escrowhandler "remitpool/internal/escrow/handler"
	escrowmetrics "remitpool/internal/escrow/metrics"
	"remitpool/internal/platform/config"
	"remitpool/internal/platform/httpserver"
	"remitpool/internal/platform/logger"
	"remitpool/internal/platform/redis"
	"remitpool/internal/resolver"
	resolverhandler "remitpool/internal/resolver/handler"
	httptransport "remitpool/internal/transport/http"
	id "remitpool/pkg/domain"
)

// main wires stores, services, and the HTTP surface, then runs the server and
// the audit worker until a shutdown signal. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerAccount := id.AccountID(cfg.LedgerAccount)
	adminAccount := id.AccountID(cfg.AdminAccount)

	// Audit pipeline: kafka sink when brokers are configured, in-memory
	// otherwise. Services hand events to the worker through a bounded inbox.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if cfg.KafkaBrokers != "" {
		sink, err := audit.NewKafkaSink(ctx, strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditStore = sink
	}
	inbox := make(chan audit.Event, 1024)
	worker := audit.NewWorker(auditStore, inbox)
	events := audit.NewAsyncPublisher(inbox)

	// Compliance engine: redis-backed usage accounting when configured.
	var usageStore compliance.UsageStore = compliance.NewInMemoryUsageStore()
	if cfg.RedisURL != "" {
		redisClient, err := redis.New(cfg.Redis())
		if err != nil {
			log.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		usageStore = compliance.NewRedisUsageStore(redisClient.Client)
	}
	complianceSvc, err := compliance.New(
		compliance.NewInMemoryListStore(),
		usageStore,
		compliance.Config{
			DefaultDailyLimit: cfg.DefaultDailyLimit,
			MinimumAmount:     cfg.MinimumAmount,
			AuthorizedCaller:  ledgerAccount,
			Admin:             adminAccount,
		},
		compliance.WithLogger(log),
		compliance.WithEventPublisher(events),
		compliance.WithMetrics(compliancemetrics.New()),
	)
	if err != nil {
		log.Error("failed to build compliance service", "error", err)
		os.Exit(1)
	}

	// Identifier resolver: postgres-backed registry when configured.
	var resolverStore resolver.Store = resolver.NewInMemoryStore()
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, resolver.Schema); err != nil {
			log.Error("failed to apply resolver schema", "error", err)
			os.Exit(1)
		}
		resolverStore = resolver.NewPostgresStore(pool)
	}
	resolverSvc, err := resolver.New(resolverStore, resolver.WithLogger(log))
	if err != nil {
		log.Error("failed to build resolver service", "error", err)
		os.Exit(1)
	}

	escrowSvc, err := escrow.New(
		escrow.NewInMemoryStore(),
		escrow.NewInMemoryGateway(),
		compliance.AsModule(complianceSvc, ledgerAccount),
		escrow.Config{
			FeeCollector:   id.AccountID(cfg.FeeCollector),
			FeeBasisPoints: cfg.FeeBasisPoints,
			AutoRelease:    cfg.AutoRelease,
			Admin:          adminAccount,
		},
		escrow.WithResolver(resolverSvc),
		escrow.WithLogger(log),
		escrow.WithEventPublisher(events),
		escrow.WithMetrics(escrowmetrics.New()),
	)
	if err != nil {
		log.Error("failed to build escrow service", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(
		httptransport.Config{AdminSigningKey: []byte(cfg.AdminSigningKey)},
		httptransport.Handlers{
			Escrow:     escrowhandler.New(escrowSvc, log),
			Compliance: compliancehandler.New(complianceSvc, log),
			Resolver:   resolverhandler.New(resolverSvc, log),
		},
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting remitpool server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
