package service

import (
	"context"

	"tables-pos/internal/domain"
	"tables-pos/internal/repository"

	"go.uber.org/zap"
)

// CategoryService loads menu categories, remote first with cache fallback
type CategoryService interface {
	GetCategories(ctx context.Context) ([]domain.Category, error)
}

// ProductService loads the products of one category, remote first with cache fallback
type ProductService interface {
	GetProducts(ctx context.Context, category domain.Category) ([]domain.Product, error)
}

type categoryService struct {
	repo   repository.TablesRepository
	logger *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(repo repository.TablesRepository, logger *zap.Logger) CategoryService {
	return &categoryService{repo: repo, logger: logger}
}

// GetCategories makes one remote attempt. On success the result is cached and
// returned unchanged. On failure a non-empty cache masks the remote error, an
// empty cache returns the remote error, and a failing cache returns ErrLocal.
func (s *categoryService) GetCategories(ctx context.Context) ([]domain.Category, error) {
	categories, remoteErr := s.repo.FetchCategories(ctx)
	if remoteErr == nil {
		if err := s.repo.InsertCategories(ctx, categories); err != nil {
			s.logger.Warn("Failed to cache categories", zap.Int("count", len(categories)), zap.Error(err))
		}
		return categories, nil
	}

	if domain.IsCancellation(remoteErr) {
		return nil, remoteErr
	}

	s.logger.Info("Remote categories unavailable, reading cache", zap.Error(remoteErr))

	cached, err := s.repo.GetLocalCategories(ctx)
	return fallback(cached, err, remoteErr)
}

type productService struct {
	repo   repository.TablesRepository
	logger *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.TablesRepository, logger *zap.Logger) ProductService {
	return &productService{repo: repo, logger: logger}
}

// GetProducts mirrors GetCategories. On success it also replaces the
// category's cached product index, unless the fetched list is empty, in which
// case any previous index is left untouched.
func (s *productService) GetProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	products, remoteErr := s.repo.FetchProducts(ctx, category.ID)
	if remoteErr == nil {
		if err := s.repo.InsertProducts(ctx, products); err != nil {
			s.logger.Warn("Failed to cache products",
				zap.Int("category_id", category.ID),
				zap.Int("count", len(products)),
				zap.Error(err),
			)
		}

		if ids := domain.ProductIDs(products); len(ids) > 0 {
			if err := s.repo.UpdateProductsAndCategoryRelation(ctx, category, ids); err != nil {
				s.logger.Warn("Failed to update category product index",
					zap.Int("category_id", category.ID),
					zap.Error(err),
				)
			}
		}
		return products, nil
	}

	if domain.IsCancellation(remoteErr) {
		return nil, remoteErr
	}

	s.logger.Info("Remote products unavailable, reading cache",
		zap.Int("category_id", category.ID),
		zap.Error(remoteErr),
	)

	cached, err := s.repo.GetLocalProducts(ctx, category)
	return fallback(cached, err, remoteErr)
}

// fallback resolves the local read that follows a failed remote fetch
func fallback[T any](cached []T, localErr, remoteErr error) ([]T, error) {
	switch {
	case localErr != nil && domain.IsCancellation(localErr):
		return nil, localErr
	case localErr != nil:
		return nil, domain.ErrLocal
	case len(cached) == 0:
		return nil, remoteErr
	default:
		return cached, nil
	}
}
