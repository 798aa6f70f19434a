package repository

import (
	"context"

	"tables-pos/internal/domain"
	"tables-pos/internal/local"
	"tables-pos/internal/remote"
)

// TablesRepository unifies the remote and local menu sources. It maps between
// domain and cache models and applies no fallback or retry policy.
type TablesRepository interface {
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	FetchProducts(ctx context.Context, categoryID int) ([]domain.Product, error)
	GetLocalCategories(ctx context.Context) ([]domain.Category, error)
	GetLocalProducts(ctx context.Context, category domain.Category) ([]domain.Product, error)
	InsertCategories(ctx context.Context, categories []domain.Category) error
	InsertProducts(ctx context.Context, products []domain.Product) error
	UpdateProductsAndCategoryRelation(ctx context.Context, category domain.Category, productIDs []int) error
}

type tablesRepository struct {
	remote remote.DataSource
	local  *local.DataSource
}

// NewTablesRepository creates a new instance of TablesRepository
func NewTablesRepository(remoteSource remote.DataSource, localSource *local.DataSource) TablesRepository {
	return &tablesRepository{remote: remoteSource, local: localSource}
}

func (r *tablesRepository) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	return r.remote.FetchCategories(ctx)
}

func (r *tablesRepository) FetchProducts(ctx context.Context, categoryID int) ([]domain.Product, error) {
	return r.remote.FetchProducts(ctx, categoryID)
}

func (r *tablesRepository) GetLocalCategories(ctx context.Context) ([]domain.Category, error) {
	cached, err := r.local.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(cached))
	for _, c := range cached {
		categories = append(categories, toCategory(c))
	}
	return categories, nil
}

// GetLocalProducts rebuilds full products from flat cache records, taking the
// category name from the category passed in.
func (r *tablesRepository) GetLocalProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	cached, err := r.local.FetchProducts(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(cached))
	for _, p := range cached {
		products = append(products, toProduct(p, category))
	}
	return products, nil
}

func (r *tablesRepository) InsertCategories(ctx context.Context, categories []domain.Category) error {
	entities := make([]local.CachedCategory, 0, len(categories))
	for _, c := range categories {
		entities = append(entities, toCachedCategory(c, nil))
	}
	return r.local.InsertCategories(ctx, entities)
}

func (r *tablesRepository) InsertProducts(ctx context.Context, products []domain.Product) error {
	entities := make([]local.CachedProduct, 0, len(products))
	for _, p := range products {
		entities = append(entities, toCachedProduct(p))
	}
	return r.local.InsertProducts(ctx, entities)
}

func (r *tablesRepository) UpdateProductsAndCategoryRelation(ctx context.Context, category domain.Category, productIDs []int) error {
	return r.local.UpsertCategory(ctx, toCachedCategory(category, productIDs))
}
