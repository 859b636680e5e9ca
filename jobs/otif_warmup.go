package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/GitCaleffi/invoice-backend/internal/jobs"
	"github.com/GitCaleffi/invoice-backend/internal/orders"
	"github.com/GitCaleffi/invoice-backend/internal/suppliers"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SupplierSource enumerates the suppliers a warmup run covers.
type SupplierSource interface {
	ListActive(ctx context.Context) ([]suppliers.Supplier, error)
	Get(ctx context.Context, id int64) (*suppliers.Supplier, error)
}

// OTIFWarmupJob recomputes cached OTIF metrics so the first dashboard
// request after the cache TTL expires does not pay the aggregation cost.
type OTIFWarmupJob struct {
	Orders    *orders.Service
	Suppliers SupplierSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewOTIFWarmupJob wires dependencies for the warmup handler.
func NewOTIFWarmupJob(orderSvc *orders.Service, supplierSrc SupplierSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *OTIFWarmupJob {
	return &OTIFWarmupJob{
		Orders:    orderSvc,
		Suppliers: supplierSrc,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes OTIF warmup tasks.
func (j *OTIFWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Orders == nil || j.Suppliers == nil {
		return errors.New("otif warmup: handler not configured")
	}
	var payload OTIFWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskOTIFWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()

	targets, err := j.targets(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("load warmup suppliers", slog.Any("error", err))
		return resultErr
	}
	if len(targets) == 0 {
		logger.Info("no suppliers discovered for otif warmup")
		return resultErr
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sup := range targets {
		sup := sup
		g.Go(func() error {
			warmCtx, cancel := context.WithTimeout(gctx, 20*time.Second)
			defer cancel()
			if err := j.Orders.RefreshMetrics(warmCtx, sup.ID, sup.Codes()); err != nil {
				failed.Add(1)
				logger.Error("refresh otif metrics", slog.Int64("supplier_id", sup.ID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		resultErr = fmt.Errorf("otif warmup: %d of %d suppliers failed", n, len(targets))
		return resultErr
	}
	logger.Info("completed otif warmup",
		slog.Int("suppliers", len(targets)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OTIFWarmupJob) targets(ctx context.Context, payload OTIFWarmupPayload) ([]suppliers.Supplier, error) {
	if payload.SupplierID > 0 {
		sup, err := j.Suppliers.Get(ctx, payload.SupplierID)
		if err != nil {
			return nil, err
		}
		return []suppliers.Supplier{*sup}, nil
	}
	return j.Suppliers.ListActive(ctx)
}

func (j *OTIFWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OTIFWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OTIFWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
