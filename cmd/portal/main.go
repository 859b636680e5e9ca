package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/GitCaleffi/invoice-backend/internal/app"
	"github.com/GitCaleffi/invoice-backend/internal/auth"
	"github.com/GitCaleffi/invoice-backend/internal/invoices"
	"github.com/GitCaleffi/invoice-backend/internal/observability"
	"github.com/GitCaleffi/invoice-backend/internal/orders"
	"github.com/GitCaleffi/invoice-backend/internal/platform/cache"
	"github.com/GitCaleffi/invoice-backend/internal/platform/db"
	"github.com/GitCaleffi/invoice-backend/internal/suppliers"
	"github.com/GitCaleffi/invoice-backend/jobs"
)

type warmupDispatcher struct {
	client *jobs.Client
}

func (d warmupDispatcher) RequestWarmup(ctx context.Context, supplierID int64) error {
	_, err := d.client.EnqueueOTIFWarmup(ctx, jobs.OTIFWarmupPayload{SupplierID: supplierID})
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	supplierRepo := suppliers.NewRepository(pool)
	tokenStore := cache.NewJSONStore(redisClient, cfg.AuthTokenTTL)
	authMiddleware := auth.NewMiddleware(logger, supplierRepo, tokenStore)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	orderRepo := orders.NewRepository(pool)
	metricsStore := cache.NewJSONStore(redisClient, cfg.OTIFCacheTTL)
	orderService := orders.NewService(logger, orderRepo, metricsStore)
	orderHandler := orders.NewHandler(logger, orderService, warmupDispatcher{client: jobClient})

	matcher := invoices.NewMatcher(cfg.Tolerance(), cfg.MatchArticleCode)
	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(logger, matcher, supplierRepo, orderRepo, invoiceRepo)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, cfg.UploadRateLimit)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Auth:           authMiddleware,
		InvoiceHandler: invoiceHandler,
		OrderHandler:   orderHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
