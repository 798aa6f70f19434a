package local

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrCategoryNotFound = errors.New("cached category not found")
	ErrProductNotFound  = errors.New("cached product not found")
)

// CachedCategory is the local representation of a category. ProductIDs is the
// ordered index of the products last fetched for it.
type CachedCategory struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	ProductIDs ProductIDList `json:"product_ids"`
}

// CachedProduct is a flat product record; the category name is not duplicated.
type CachedProduct struct {
	ID          int     `json:"id"`
	CategoryID  int     `json:"category_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

// Store is a cache engine holding categories and products.
//
// UpsertCategoryNames inserts new categories and renames existing ones while
// keeping their product index. UpsertCategory replaces the whole record,
// product index included.
type Store interface {
	ListCategories(ctx context.Context) ([]CachedCategory, error)
	FindCategory(ctx context.Context, id int) (*CachedCategory, error)
	UpsertCategoryNames(ctx context.Context, categories []CachedCategory) error
	UpsertCategory(ctx context.Context, category CachedCategory) error
	UpsertProducts(ctx context.Context, products []CachedProduct) error
	FindProductsByIDs(ctx context.Context, ids []int) ([]CachedProduct, error)
	Close() error
}

// ProductIDList is stored as a JSON array string, e.g. "[3,1,2]".
type ProductIDList []int

// Value implements driver.Valuer
func (l ProductIDList) Value() (driver.Value, error) {
	return encodeProductIDs(l)
}

// Scan implements sql.Scanner. Drivers hand the column back as string or []byte.
func (l *ProductIDList) Scan(src interface{}) error {
	if src == nil {
		*l = ProductIDList{}
		return nil
	}

	raw, err := cast.ToStringE(src)
	if err != nil {
		return fmt.Errorf("failed to read product ids column: %w", err)
	}

	ids, err := decodeProductIDs(raw)
	if err != nil {
		return err
	}
	*l = ids
	return nil
}

func encodeProductIDs(ids []int) (string, error) {
	if ids == nil {
		ids = []int{}
	}
	raw, err := json.MarshalToString(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode product ids: %w", err)
	}
	return raw, nil
}

func decodeProductIDs(raw string) (ProductIDList, error) {
	if strings.TrimSpace(raw) == "" {
		return ProductIDList{}, nil
	}

	var ids []int
	if err := json.UnmarshalFromString(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode product ids %q: %w", raw, err)
	}
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

// orderProducts returns products in the order of ids. A missing id is an error.
func orderProducts(ids []int, found map[int]CachedProduct) ([]CachedProduct, error) {
	products := make([]CachedProduct, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		products = append(products, p)
	}
	return products, nil
}

func sortCategories(categories []CachedCategory) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})
}
