package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GitCaleffi/invoice-backend/internal/platform/cache"
)

// Service aggregates purchase-order lines into the grouped OTIF view.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	metrics *cache.JSONStore
	now     func() time.Time
}

// NewService constructs an orders service. metrics may be nil, in which
// case global metrics are always computed live.
func NewService(logger *slog.Logger, repo Repository, metrics *cache.JSONStore) *Service {
	return &Service{
		logger:  logger,
		repo:    repo,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Aggregate computes the global OTIF rate over the full filtered line set
// and returns one page of order groups. The rate is always derived from
// the unpaginated set, so page and limit can never change it.
func (s *Service) Aggregate(ctx context.Context, codes []string, filters ListFilters, page, limit int) (*OTIFReport, error) {
	lines, err := s.repo.ListBySupplierCodes(ctx, codes, filters)
	if err != nil {
		return nil, fmt.Errorf("orders: list lines: %w", err)
	}

	report := &OTIFReport{OTIFRate: GlobalRate(lines)}
	groups := GroupByOrder(lines, s.now())
	report.Orders, report.TotalGroups = PaginateGroups(groups, page, limit)
	return report, nil
}

// OrderDetail returns one order's lines with pagination plus its group
// summary.
func (s *Service) OrderDetail(ctx context.Context, orderNumber string, codes []string, page, limit int) ([]PurchaseOrderLine, *OrderGroup, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	lines, total, err := s.repo.CountAndFindByOrderNumber(ctx, orderNumber, codes, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("orders: find order %s: %w", orderNumber, err)
	}
	if total == 0 {
		return nil, nil, 0, ErrNotFound
	}

	// The group summary must cover every line of the order, not just the
	// requested page.
	all, _, err := s.repo.CountAndFindByOrderNumber(ctx, orderNumber, codes, total, 0)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("orders: load order group %s: %w", orderNumber, err)
	}
	groups := GroupByOrder(all, s.now())
	if len(groups) == 0 {
		return nil, nil, 0, ErrNotFound
	}
	return lines, &groups[0], total, nil
}

// Metrics returns the cached supplier-wide OTIF summary, computing and
// caching it on miss.
func (s *Service) Metrics(ctx context.Context, supplierID int64, codes []string) (*GlobalMetrics, error) {
	var m GlobalMetrics
	err := s.metrics.Fetch(ctx, metricsKey(supplierID), &m, func(ctx context.Context) (interface{}, error) {
		return s.computeMetrics(ctx, codes)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RefreshMetrics recomputes and stores the supplier-wide OTIF summary.
// Used by the warmup job.
func (s *Service) RefreshMetrics(ctx context.Context, supplierID int64, codes []string) error {
	m, err := s.computeMetrics(ctx, codes)
	if err != nil {
		return err
	}
	if err := s.metrics.Put(ctx, metricsKey(supplierID), m); err != nil {
		s.logger.Warn("store otif metrics", slog.Int64("supplier_id", supplierID), slog.Any("error", err))
	}
	return nil
}

// InvalidateMetrics drops the supplier's cached OTIF summary so the next
// read recomputes it live. Called when a refresh has been requested and
// the warmup job will repopulate the entry.
func (s *Service) InvalidateMetrics(ctx context.Context, supplierID int64) error {
	return s.metrics.Invalidate(ctx, metricsKey(supplierID))
}

func (s *Service) computeMetrics(ctx context.Context, codes []string) (*GlobalMetrics, error) {
	lines, err := s.repo.ListBySupplierCodes(ctx, codes, ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("orders: compute metrics: %w", err)
	}
	onTime := 0
	for _, l := range lines {
		if LineOnTime(l) {
			onTime++
		}
	}
	return &GlobalMetrics{
		OTIFRate:    GlobalRate(lines),
		TotalLines:  len(lines),
		OnTimeLines: onTime,
		ComputedAt:  s.now().UTC(),
	}, nil
}

func metricsKey(supplierID int64) string {
	return fmt.Sprintf("otif:metrics:%d", supplierID)
}
