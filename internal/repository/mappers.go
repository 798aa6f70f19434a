package repository

import (
	"tables-pos/internal/domain"
	"tables-pos/internal/local"
)

func toCategory(c local.CachedCategory) domain.Category {
	return domain.Category{ID: c.ID, Name: c.Name}
}

func toCachedCategory(c domain.Category, productIDs []int) local.CachedCategory {
	return local.CachedCategory{ID: c.ID, Name: c.Name, ProductIDs: productIDs}
}

func toProduct(p local.CachedProduct, category domain.Category) domain.Product {
	return domain.Product{
		ID:          p.ID,
		Category:    category,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
	}
}

func toCachedProduct(p domain.Product) local.CachedProduct {
	return local.CachedProduct{
		ID:          p.ID,
		CategoryID:  p.Category.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
	}
}
