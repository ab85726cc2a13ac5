package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/crawl-meter/config"
	"github.com/vnmchuo/crawl-meter/internal/charging"
	"github.com/vnmchuo/crawl-meter/internal/crawler"
	"github.com/vnmchuo/crawl-meter/internal/ledger"
	"github.com/vnmchuo/crawl-meter/internal/metering"
	"github.com/vnmchuo/crawl-meter/internal/seeder"
	"github.com/vnmchuo/crawl-meter/internal/telemetry"
)

var defaultSeeds = []string{
	"https://example.com",
	"https://example.org",
	"https://example.net",
}

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("crawl-meter", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Select ledger backend
	var store ledger.Store
	switch cfg.LedgerBackend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect postgres: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		log.Println("PostgreSQL ledger connected")
		store = ledger.NewPostgresStore(pool)
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to ping redis: %v", err)
		}
		log.Println("Redis ledger connected")
		store = ledger.NewRedisStore(rdb)
	default:
		log.Println("using in-memory ledger (single-process, dev only)")
		store = ledger.NewMemoryStore()
	}

	// 4. Derive identity
	workerID := uuid.New().String()
	partitionKey := ledger.PartitionKey(time.Now(), cfg.AccountID)
	log.Printf("worker %s metering partition %s", workerID, partitionKey)

	// 5. Seed demo usage history if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedUsageHistory(ctx, store, partitionKey, 100)
	}

	// 6. Init charging client
	charger := charging.NewHTTPClient(cfg.ChargeAPIURL, cfg.ChargeAPIKey, cfg.AccountID)

	// 7. Init quota tracker
	tracker := metering.NewTracker(store, partitionKey, cfg.QuotaRefreshInterval)
	if err := tracker.Seed(ctx); err != nil {
		log.Printf("quota: seed listing failed, starting from zero: %v", err)
	}
	go tracker.Run(ctx)

	// 8. Init meter
	tracer := otel.GetTracerProvider().Tracer("crawl-meter")
	meter := metering.NewMeter(store, charger, tracker, partitionKey, workerID, cfg.FreeQuotaThreshold, tracer)

	// 9. Init rental coordinator
	coordinator := metering.NewCoordinator(store, charger, workerID, partitionKey, cfg.SettleDelay)
	coordinator.OnLimitReached = meter.Stop
	go func() {
		if err := coordinator.Run(ctx); err != nil {
			log.Printf("coordinator: rental charge failed: %v", err)
		}
	}()

	// 10. Start the crawl loop
	crawl := crawler.New(meter, defaultSeeds, cfg.CrawlConcurrency, cfg.CrawlMaxItems, 250*time.Millisecond)
	go func() {
		crawl.Run(ctx)
		stats := crawl.Stats()
		log.Printf("crawl finished: %d produced, %d free, %d paid", stats.Produced, stats.Free, stats.Paid)
	}()

	// 11. Init ops router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"crawl-meter"}`))
	})

	r.Get("/v1/usage", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"account_id":           cfg.AccountID,
			"worker_id":            workerID,
			"partition_key":        partitionKey,
			"free_quota_threshold": cfg.FreeQuotaThreshold,
			"free_units_used":      tracker.FreeUnitsUsed(),
			"rental_state":         coordinator.State(),
			"crawl":                crawl.Stats(),
		})
	})

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("crawl-meter ops server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
