package local

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	categoriesBucket = []byte("categories")
	productsBucket   = []byte("products")
)

type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt file and prepares its buckets
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{categoriesBucket, productsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

func itob(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// ListCategories walks the categories bucket; big-endian keys keep ID order
func (s *boltStore) ListCategories(ctx context.Context) ([]CachedCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	categories := []CachedCategory{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(categoriesBucket).ForEach(func(_, v []byte) error {
			var category CachedCategory
			if err := json.Unmarshal(v, &category); err != nil {
				return fmt.Errorf("failed to decode category: %w", err)
			}
			categories = append(categories, category)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, nil
}

func (s *boltStore) FindCategory(ctx context.Context, id int) (*CachedCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var category *CachedCategory
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(categoriesBucket).Get(itob(id))
		if v == nil {
			return nil
		}
		category = &CachedCategory{}
		return json.Unmarshal(v, category)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	return category, nil
}

func (s *boltStore) UpsertCategoryNames(ctx context.Context, categories []CachedCategory) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(categoriesBucket)
		for _, category := range categories {
			record := category
			if existing := bucket.Get(itob(category.ID)); existing != nil {
				var current CachedCategory
				if err := json.Unmarshal(existing, &current); err != nil {
					return fmt.Errorf("failed to decode category %d: %w", category.ID, err)
				}
				record.ProductIDs = current.ProductIDs
			}
			if err := putJSON(bucket, record.ID, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) UpsertCategory(ctx context.Context, category CachedCategory) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(categoriesBucket), category.ID, category)
	})
}

func (s *boltStore) UpsertProducts(ctx context.Context, products []CachedProduct) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(productsBucket)
		for _, product := range products {
			if err := putJSON(bucket, product.ID, product); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) FindProductsByIDs(ctx context.Context, ids []int) ([]CachedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := make(map[int]CachedProduct, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(productsBucket)
		for _, id := range ids {
			v := bucket.Get(itob(id))
			if v == nil {
				continue
			}
			var product CachedProduct
			if err := json.Unmarshal(v, &product); err != nil {
				return fmt.Errorf("failed to decode product %d: %w", id, err)
			}
			found[id] = product
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return orderProducts(ids, found)
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func putJSON(bucket *bolt.Bucket, id int, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record %d: %w", id, err)
	}
	return bucket.Put(itob(id), raw)
}
