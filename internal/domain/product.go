package domain

// Category represents a menu category as assigned by the backend
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product represents a menu product belonging to one category
type Product struct {
	ID          int      `json:"id"`
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Price       float64  `json:"price"`
}

// ProductIDs returns the IDs of products in their original order
func ProductIDs(products []Product) []int {
	ids := make([]int, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}
