package local

import (
	"context"
	"fmt"

	"tables-pos/internal/domain"

	"go.uber.org/zap"
)

// DataSource is the local side of the repository. Every storage failure is
// reported as domain.ErrLocal; context cancellation is returned unchanged.
type DataSource struct {
	store  Store
	logger *zap.Logger
}

// NewDataSource creates a DataSource over an injected Store
func NewDataSource(store Store, logger *zap.Logger) *DataSource {
	return &DataSource{store: store, logger: logger}
}

func (d *DataSource) localError(op string, err error) error {
	if domain.IsCancellation(err) {
		return err
	}
	d.logger.Warn("Local cache operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", domain.ErrLocal, op, err)
}

// FetchCategories returns every cached category
func (d *DataSource) FetchCategories(ctx context.Context) ([]CachedCategory, error) {
	categories, err := d.store.ListCategories(ctx)
	if err != nil {
		return nil, d.localError("fetch categories", err)
	}
	return categories, nil
}

// FetchProducts resolves the category's product index and batch-reads the
// products it names. A missing category or an empty index is a local failure.
func (d *DataSource) FetchProducts(ctx context.Context, categoryID int) ([]CachedProduct, error) {
	category, err := d.store.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, d.localError("fetch products", err)
	}

	if len(category.ProductIDs) == 0 {
		d.logger.Debug("Category has no cached product index", zap.Int("category_id", categoryID))
		return nil, fmt.Errorf("%w: category %d has no cached products", domain.ErrLocal, categoryID)
	}

	products, err := d.store.FindProductsByIDs(ctx, category.ProductIDs)
	if err != nil {
		return nil, d.localError("fetch products", err)
	}
	return products, nil
}

// InsertCategories upserts categories by ID, keeping existing product indexes
func (d *DataSource) InsertCategories(ctx context.Context, categories []CachedCategory) error {
	if err := d.store.UpsertCategoryNames(ctx, categories); err != nil {
		return d.localError("insert categories", err)
	}
	return nil
}

// UpsertCategory writes a category together with its product index
func (d *DataSource) UpsertCategory(ctx context.Context, category CachedCategory) error {
	if err := d.store.UpsertCategory(ctx, category); err != nil {
		return d.localError("upsert category", err)
	}
	return nil
}

// InsertProducts upserts products by ID
func (d *DataSource) InsertProducts(ctx context.Context, products []CachedProduct) error {
	if err := d.store.UpsertProducts(ctx, products); err != nil {
		return d.localError("insert products", err)
	}
	return nil
}
