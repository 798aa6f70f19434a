package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style for the SQL store
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

type sqlStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates a Store over a migrated database handle. The schema is
// owned by the database package migrations.
func NewSQLStore(db *sql.DB, dialect Dialect) Store {
	return &sqlStore{db: db, dialect: dialect}
}

// rebind rewrites ? placeholders to $n for postgres
func (s *sqlStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListCategories retrieves all cached categories ordered by ID
func (s *sqlStore) ListCategories(ctx context.Context) ([]CachedCategory, error) {
	query := `
		SELECT id, name, product_ids
		FROM categories
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []CachedCategory{}
	for rows.Next() {
		var category CachedCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.ProductIDs); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindCategory retrieves a cached category by ID
func (s *sqlStore) FindCategory(ctx context.Context, id int) (*CachedCategory, error) {
	query := s.rebind(`
		SELECT id, name, product_ids
		FROM categories
		WHERE id = ?
	`)

	category := &CachedCategory{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name, &category.ProductIDs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// UpsertCategoryNames inserts categories, renaming existing rows without
// touching their product index
func (s *sqlStore) UpsertCategoryNames(ctx context.Context, categories []CachedCategory) error {
	query := s.rebind(`
		INSERT INTO categories (id, name, product_ids)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`)

	for _, category := range categories {
		if _, err := s.db.ExecContext(ctx, query, category.ID, category.Name, category.ProductIDs); err != nil {
			return fmt.Errorf("failed to upsert category %d: %w", category.ID, err)
		}
	}

	return nil
}

// UpsertCategory inserts or fully replaces a category including its product index
func (s *sqlStore) UpsertCategory(ctx context.Context, category CachedCategory) error {
	query := s.rebind(`
		INSERT INTO categories (id, name, product_ids)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, product_ids = excluded.product_ids
	`)

	if _, err := s.db.ExecContext(ctx, query, category.ID, category.Name, category.ProductIDs); err != nil {
		return fmt.Errorf("failed to upsert category %d: %w", category.ID, err)
	}

	return nil
}

// UpsertProducts inserts or replaces products by ID
func (s *sqlStore) UpsertProducts(ctx context.Context, products []CachedProduct) error {
	query := s.rebind(`
		INSERT INTO products (id, category_id, name, description, image, price)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category_id = excluded.category_id,
			name = excluded.name,
			description = excluded.description,
			image = excluded.image,
			price = excluded.price
	`)

	for _, product := range products {
		_, err := s.db.ExecContext(
			ctx,
			query,
			product.ID,
			product.CategoryID,
			product.Name,
			product.Description,
			product.Image,
			product.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", product.ID, err)
		}
	}

	return nil
}

// FindProductsByIDs batch-reads products and returns them in the order of ids
func (s *sqlStore) FindProductsByIDs(ctx context.Context, ids []int) ([]CachedProduct, error) {
	if len(ids) == 0 {
		return []CachedProduct{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := s.rebind(fmt.Sprintf(`
		SELECT id, category_id, name, description, image, price
		FROM products
		WHERE id IN (%s)
	`, placeholders))

	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	found := make(map[int]CachedProduct, len(ids))
	for rows.Next() {
		var product CachedProduct
		err := rows.Scan(
			&product.ID,
			&product.CategoryID,
			&product.Name,
			&product.Description,
			&product.Image,
			&product.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		found[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return orderProducts(ids, found)
}

// Close closes the underlying database handle
func (s *sqlStore) Close() error {
	return s.db.Close()
}
