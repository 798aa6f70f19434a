package tables

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is one product in the cart
type OrderLine struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderSummary is the cart snapshot handed to the checkout view
type OrderSummary struct {
	ID             uuid.UUID   `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	Lines          []OrderLine `json:"lines"`
	OrderedCount   string      `json:"ordered_count"`
	TotalPrice     float64     `json:"total_price"`
	FormattedTotal string      `json:"formatted_total"`
}

func newOrderSummary(s State) OrderSummary {
	lines := make([]OrderLine, 0)
	for _, p := range s.Products {
		if p.Ordered == 0 {
			continue
		}
		subtotal := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Ordered))).Round(2)
		lines = append(lines, OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Ordered,
			UnitPrice: p.Price,
			Subtotal:  subtotal.InexactFloat64(),
		})
	}

	return OrderSummary{
		ID:             uuid.New(),
		CreatedAt:      time.Now().UTC(),
		Lines:          lines,
		OrderedCount:   FormatOrders(s.OrderedProducts),
		TotalPrice:     s.TotalPrice,
		FormattedTotal: FormatPrice(s.TotalPrice),
	}
}

// FormatPrice renders an amount with thousands separators and two decimals
func FormatPrice(amount float64) string {
	return humanize.FormatFloat("#,###.##", amount)
}

// addPrice returns total+price rounded to two decimal places
func addPrice(total, price float64) float64 {
	return decimal.NewFromFloat(total).Add(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
}
