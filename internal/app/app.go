package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/handler"
	"github.com/xenking/order-pipeline/internal/messaging/kafka"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
	redisledger "github.com/xenking/order-pipeline/internal/storage/redis"
	"github.com/xenking/order-pipeline/pkg/health"
	"github.com/xenking/order-pipeline/pkg/httpmiddleware"
	"github.com/xenking/order-pipeline/pkg/workpool"
)

// saturationLimit marks the service unready while nearly every pooled
// connection or worker slot is taken.
const saturationLimit = 0.95

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	table, err := cfg.Freight.Table()
	if err != nil {
		return errors.Wrap(err, "freight table")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.Pool.PoolOptions())
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("db_pool", time.Second, health.SaturationCheck(func() float64 {
		return postgres.Saturation(pool)
	}, saturationLimit))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories share one acquirer so every read and write gets the same
	// bounded retry.
	conns := postgres.NewAcquirer(pool, cfg.Pool.RetryConfig())
	productRepo := postgres.NewProductRepository(conns)
	orderRepo := postgres.NewOrderRepository(conns)
	inventoryRepo := postgres.NewInventoryRepository(conns)

	workers := workpool.New(cfg.Workers)
	healthSvc.AddReadinessCheck("workers", time.Second, health.SaturationCheck(workers.Saturation, saturationLimit))

	reconcilerOpts := []order.ReconcilerOption{order.WithReconcileRunner(workers)}
	if cfg.Redis.URL != "" {
		ledger, err := redisledger.Connect(ctx, cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = ledger.Close() }()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(ledger))
		reconcilerOpts = append(reconcilerOpts, order.WithLedger(ledger))
		lg.Info("Inventory failure ledger enabled")
	}

	serviceOpts := []order.Option{
		order.WithRunner(workers),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Publisher())
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		serviceOpts = append(serviceOpts, order.WithPublisher(publisher))
		lg.Info("Order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	orderService, err := order.NewService(
		productRepo,
		table,
		orderRepo,
		order.NewReconciler(inventoryRepo, reconcilerOpts...),
		serviceOpts...,
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.NewHandler(orderService, handler.CustomerFromHeader)
	limit := httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		KeyFunc: httpmiddleware.HeaderKey(handler.CustomerHeader),
	})

	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Route("/api", func(r chi.Router) {
		r.Use(limit)
		h.Mount(r)
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(r,
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.RequestID(),
				httpmiddleware.Recovery(),
			),
			"orders-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
