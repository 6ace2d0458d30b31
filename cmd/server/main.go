// Command server runs the campaign funding ledger API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"pledger/internal/audit"
	campaigncache "pledger/internal/campaign/cache"
	campaignservice "pledger/internal/campaign/service"
	campaignstore "pledger/internal/campaign/store"
	governanceservice "pledger/internal/governance/service"
	governancestore "pledger/internal/governance/store"
	identityservice "pledger/internal/identity/service"
	identitystore "pledger/internal/identity/store"
	"pledger/internal/milestone"
	"pledger/internal/platform/config"
	"pledger/internal/platform/httpserver"
	"pledger/internal/platform/logger"
	"pledger/internal/platform/metrics"
	platformredis "pledger/internal/platform/redis"
	"pledger/internal/receipt"
	"pledger/internal/refund"
	"pledger/internal/reputation"
	"pledger/internal/token"
	"pledger/internal/transfer"
	"pledger/internal/transport/rest"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.New().Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Stores default to in-memory for development; POSTGRES_URL switches the
	// durable entities to Postgres. Governance and receipts stay in-memory.
	var (
		campaignStore   campaignservice.Store
		identityStore   identityservice.Store
		reputationStore reputation.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		campaignStore = campaignstore.NewPostgres(db)
		identityStore = identitystore.NewPostgres(db)
		reputationStore = reputation.NewPostgres(pool)
		log.Info("using postgres stores")
	} else {
		campaignStore = campaignstore.NewInMemory()
		identityStore = identitystore.NewInMemory()
		reputationStore = reputation.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(auditStore)

	var sinks []audit.Sink
	kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	if kafkaSink != nil {
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka audit sink enabled", "topic", cfg.KafkaTopic)
	}
	worker := audit.NewWorker(publisher.Inbox(), log, sinks...)

	tracker, err := reputation.New(reputationStore, cfg.PointsPerTier,
		reputation.WithPublisher(publisher),
		reputation.WithLogger(log),
	)
	if err != nil {
		return err
	}

	identitySvc, err := identityservice.New(identityStore,
		identityservice.WithPublisher(publisher),
		identityservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	issuer, err := receipt.NewIssuer(receipt.NewInMemoryStore())
	if err != nil {
		return err
	}

	backend := transfer.NewMemoryBackend()

	campaignOpts := []campaignservice.Option{
		campaignservice.WithLogger(log),
		campaignservice.WithMetrics(m),
		campaignservice.WithTracker(tracker),
		campaignservice.WithPublisher(publisher),
		campaignservice.WithMinTarget(cfg.MinCampaignTarget),
		campaignservice.WithBatchLimit(cfg.BatchEvaluateLimit),
	}
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		campaignOpts = append(campaignOpts, campaignservice.WithAnalyticsCache(
			campaigncache.NewAnalyticsCache(redisClient.Client, cfg.AnalyticsCacheTTL),
		))
		log.Info("analytics cache enabled", "ttl", cfg.AnalyticsCacheTTL)
	}
	campaignSvc, err := campaignservice.New(campaignStore, identitySvc, issuer, backend, campaignOpts...)
	if err != nil {
		return err
	}

	milestoneCtrl, err := milestone.New(campaignStore, milestone.NewInMemoryProofStore(),
		milestone.WithPublisher(publisher),
		milestone.WithLogger(log),
	)
	if err != nil {
		return err
	}

	vault, err := refund.New(campaignSvc, refund.NewInMemoryClaimStore(), backend,
		refund.WithPublisher(publisher),
		refund.WithMetrics(m),
		refund.WithLogger(log),
	)
	if err != nil {
		return err
	}

	governanceSvc, err := governanceservice.New(
		governancestore.NewInMemory(), identitySvc, campaignSvc, cfg.DefaultQuorum,
		governanceservice.WithTracker(tracker),
		governanceservice.WithPublisher(publisher),
		governanceservice.WithMetrics(m),
		governanceservice.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := rest.NewRouter(rest.Deps{
		Logger:          log,
		Metrics:         m,
		TokenValidator:  token.NewService(cfg.JWTSigningKey, "pledger"),
		AdminSecretHash: cfg.AdminSecretHash,
		Campaigns:       campaignSvc,
		Milestones:      milestoneCtrl,
		Refunds:         vault,
		Governance:      governanceSvc,
		Receipts:        issuer,
		Reputation:      tracker,
		Identity:        identitySvc,
		Events:          publisher,
	})
	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
