package main

// GET /cart - current cart of the session
// POST /cart/add - one more unit of a product in the cart
// POST /cart/remove - remove a product from the cart
// POST /cart/update - set the amount of a product in the cart
// GET /cart/subscribe - websocket stream of cart changes and errors
// GET /healthz, GET /metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cart-management/catalog"
	"cart-management/config"
	"cart-management/handler"
	"cart-management/logger"
	"cart-management/metrics"
	"cart-management/notify"
	"cart-management/service"
	"cart-management/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer zl.Sync()

	// --- Store ---
	kv, err := openKV(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("KV store init failed", zap.String("backend", cfg.KVBackend), zap.Error(err))
	}
	defer kv.Close()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// --- Notifications ---
	var writer *kafka.Writer
	if len(cfg.KafkaBrokers) > 0 {
		writer = notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		zl.Info("publishing notifications to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// --- Service ---
	api := catalog.NewClient(cfg.CatalogURL, cfg.HTTPTimeout)
	messages := service.MessagesFor(cfg.Locale)

	sessions := handler.NewSessions(func(ctx context.Context, id string, n notify.Notifier) (service.CartService, error) {
		sl := zl.With(zap.String("session", id))

		notifiers := notify.Multi{n, notify.NewLog(sl)}
		if writer != nil {
			notifiers = append(notifiers, notify.NewKafka(writer, id, sl))
		}

		svc := service.NewService(
			service.Dependencies{Stock: api, Catalog: api, KV: kv, Notifier: notifiers},
			service.WithKey(cfg.CartKey+":"+id),
			service.WithLogger(sl),
			service.WithMetrics(m),
			service.WithMessages(messages),
		)
		if err := svc.Initialize(ctx); err != nil {
			return nil, err
		}
		return svc, nil
	}, handler.WithIdleTimeout(cfg.IdleTimeout()), handler.WithLoadTimeout(cfg.HTTPTimeout))

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, time.Minute)

	// --- Handlers ---
	h := handler.NewHandler(sessions, zl)

	// --- Router ---
	r := mux.NewRouter()
	r.Use(handler.RequestLogger(zl))
	h.RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler(reg)).Methods("GET")

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("server running", zap.String("port", cfg.Port), zap.String("env", cfg.Env), zap.String("kv_backend", cfg.KVBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zl.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("shutdown error", zap.Error(err))
	}
	zl.Info("server shutdown complete")
}

// openKV opens the storage backend named in the config.
func openKV(ctx context.Context, cfg config.Config, zl *zap.Logger) (store.KV, error) {
	switch cfg.KVBackend {
	case config.BackendMemory:
		zl.Warn("using in-memory KV, carts are lost on restart")
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.NewFileStore(cfg.KVFilePath)
	case config.BackendRedis:
		return store.NewRedisStore(ctx, cfg.RedisURL, cfg.CartTTL)
	case config.BackendPostgres:
		pg, err := store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		zl.Info("database migrations executed successfully")
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown KV backend %q", cfg.KVBackend)
	}
}
