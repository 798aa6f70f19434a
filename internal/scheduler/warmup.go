package scheduler

import (
	"context"
	"fmt"
	"time"

	"tables-pos/internal/domain"
	"tables-pos/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Result summarizes one warm-up run
type Result struct {
	Categories int
	Products   int
	Failed     int
}

// Warmup refreshes the local cache by running the catalog use cases for
// every category on a cron schedule.
type Warmup struct {
	categories service.CategoryService
	products   service.ProductService
	logger     *zap.Logger
	timeout    time.Duration

	sched *cron.Cron
}

// NewWarmup creates a Warmup. timeout bounds a single run.
func NewWarmup(categories service.CategoryService, products service.ProductService, timeout time.Duration, logger *zap.Logger) *Warmup {
	return &Warmup{
		categories: categories,
		products:   products,
		logger:     logger,
		timeout:    timeout,
		sched:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start schedules the job. An empty schedule leaves the scheduler idle.
func (w *Warmup) Start(schedule string) error {
	if schedule == "" {
		w.logger.Info("Cache warm-up disabled")
		return nil
	}

	_, err := w.sched.AddFunc(schedule, func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Cache warm-up panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if _, err := w.Run(ctx); err != nil {
			w.logger.Warn("Cache warm-up failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}

	w.sched.Start()
	w.logger.Info("Cache warm-up scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running job to finish or ctx to expire
func (w *Warmup) Stop(ctx context.Context) {
	select {
	case <-w.sched.Stop().Done():
	case <-ctx.Done():
	}
}

// Run performs one warm-up pass. A categories failure aborts the run; a
// products failure is counted and the pass continues.
func (w *Warmup) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	categories, err := w.categories.GetCategories(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load categories: %w", err)
	}

	result := Result{Categories: len(categories)}
	for _, category := range categories {
		products, err := w.products.GetProducts(ctx, category)
		if err != nil {
			if domain.IsCancellation(err) {
				return result, err
			}
			result.Failed++
			w.logger.Warn("Failed to warm products",
				zap.Int("category_id", category.ID),
				zap.Error(err),
			)
			continue
		}
		result.Products += len(products)
	}

	w.logger.Info("Cache warm-up completed",
		zap.Int("categories", result.Categories),
		zap.Int("products", result.Products),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}
