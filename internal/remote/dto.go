package remote

import "tables-pos/internal/domain"

type categoryDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type productDTO struct {
	ID          int         `json:"id"`
	Category    categoryDTO `json:"category"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Price       float64     `json:"price"`
}

func (d categoryDTO) toCategory() domain.Category {
	return domain.Category{ID: d.ID, Name: d.Name}
}

func (d productDTO) toProduct() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Category:    d.Category.toCategory(),
		Name:        d.Name,
		Description: d.Description,
		Image:       d.Image,
		Price:       d.Price,
	}
}
