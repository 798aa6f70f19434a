package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client      *redis.Client
	categoryKey string
	productKey  string
}

// NewRedisStore keeps categories and products in two hashes under keyPrefix,
// field = ID, value = JSON record.
func NewRedisStore(client *redis.Client, keyPrefix string) Store {
	return &redisStore{
		client:      client,
		categoryKey: keyPrefix + ":categories",
		productKey:  keyPrefix + ":products",
	}
}

func (s *redisStore) ListCategories(ctx context.Context) ([]CachedCategory, error) {
	values, err := s.client.HGetAll(ctx, s.categoryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]CachedCategory, 0, len(values))
	for field, raw := range values {
		var category CachedCategory
		if err := json.UnmarshalFromString(raw, &category); err != nil {
			return nil, fmt.Errorf("failed to decode category %s: %w", field, err)
		}
		categories = append(categories, category)
	}
	sortCategories(categories)

	return categories, nil
}

func (s *redisStore) FindCategory(ctx context.Context, id int) (*CachedCategory, error) {
	raw, err := s.client.HGet(ctx, s.categoryKey, strconv.Itoa(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	category := &CachedCategory{}
	if err := json.UnmarshalFromString(raw, category); err != nil {
		return nil, fmt.Errorf("failed to decode category %d: %w", id, err)
	}
	return category, nil
}

func (s *redisStore) UpsertCategoryNames(ctx context.Context, categories []CachedCategory) error {
	for _, category := range categories {
		record := category
		existing, err := s.FindCategory(ctx, category.ID)
		switch {
		case err == nil:
			record.ProductIDs = existing.ProductIDs
		case !errors.Is(err, ErrCategoryNotFound):
			return err
		}

		if err := s.UpsertCategory(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *redisStore) UpsertCategory(ctx context.Context, category CachedCategory) error {
	raw, err := json.MarshalToString(category)
	if err != nil {
		return fmt.Errorf("failed to encode category %d: %w", category.ID, err)
	}

	if err := s.client.HSet(ctx, s.categoryKey, strconv.Itoa(category.ID), raw).Err(); err != nil {
		return fmt.Errorf("failed to upsert category %d: %w", category.ID, err)
	}
	return nil
}

func (s *redisStore) UpsertProducts(ctx context.Context, products []CachedProduct) error {
	if len(products) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(products)*2)
	for _, product := range products {
		raw, err := json.MarshalToString(product)
		if err != nil {
			return fmt.Errorf("failed to encode product %d: %w", product.ID, err)
		}
		values = append(values, strconv.Itoa(product.ID), raw)
	}

	if err := s.client.HSet(ctx, s.productKey, values...).Err(); err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}
	return nil
}

func (s *redisStore) FindProductsByIDs(ctx context.Context, ids []int) ([]CachedProduct, error) {
	if len(ids) == 0 {
		return []CachedProduct{}, nil
	}

	fields := make([]string, 0, len(ids))
	for _, id := range ids {
		fields = append(fields, strconv.Itoa(id))
	}

	values, err := s.client.HMGet(ctx, s.productKey, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	found := make(map[int]CachedProduct, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var product CachedProduct
		if err := json.UnmarshalFromString(raw, &product); err != nil {
			return nil, fmt.Errorf("failed to decode product %d: %w", ids[i], err)
		}
		found[ids[i]] = product
	}

	return orderProducts(ids, found)
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
