package tables

import (
	"strconv"

	"tables-pos/internal/domain"
)

// CategoryUI is the screen projection of a category
type CategoryUI struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductUI is the screen projection of a product with its quantity in the cart
type ProductUI struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Price       float64    `json:"price"`
	Category    CategoryUI `json:"category"`
	Ordered     int        `json:"ordered"`
}

// State is one immutable snapshot of the screen. Slices are never modified in
// place once a snapshot is published; every change builds new slices.
type State struct {
	IsLoading             bool         `json:"is_loading"`
	SearchQuery           string       `json:"search_query"`
	SearchResult          []ProductUI  `json:"search_result"`
	Categories            []CategoryUI `json:"categories"`
	Products              []ProductUI  `json:"products"`
	SelectedCategoryIndex int          `json:"selected_category_index"`
	OrderedProducts       int          `json:"ordered_products"`
	TotalPrice            float64      `json:"total_price"`
}

// Category returns the category at index, if any
func (s State) Category(index int) (domain.Category, bool) {
	if index < 0 || index >= len(s.Categories) {
		return domain.Category{}, false
	}
	c := s.Categories[index]
	return domain.Category{ID: c.ID, Name: c.Name}, true
}

// Product returns the loaded product with the given id, if any
func (s State) Product(id int) (ProductUI, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return ProductUI{}, false
}

// FormatOrders renders an ordered-item count with at least two digits
func FormatOrders(count int) string {
	if count > 9 || count < 0 {
		return strconv.Itoa(count)
	}
	return "0" + strconv.Itoa(count)
}

func toCategoryUI(c domain.Category) CategoryUI {
	return CategoryUI{ID: c.ID, Name: c.Name}
}

func toProductUI(p domain.Product) ProductUI {
	return ProductUI{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       p.Price,
		Category:    toCategoryUI(p.Category),
	}
}

func toCategoryUIs(categories []domain.Category) []CategoryUI {
	out := make([]CategoryUI, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryUI(c))
	}
	return out
}

func toProductUIs(products []domain.Product) []ProductUI {
	out := make([]ProductUI, 0, len(products))
	for _, p := range products {
		out = append(out, toProductUI(p))
	}
	return out
}
