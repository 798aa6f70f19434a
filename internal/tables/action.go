package tables

// Action is a user intent dispatched to the ViewModel
type Action interface {
	isAction()
}

// SearchQuerySubmitted stores the raw query; the debounced observer evaluates it
type SearchQuerySubmitted struct {
	Query string
}

// CategorySelected loads the products of Category and marks Index selected
type CategorySelected struct {
	Index    int
	Category CategoryUI
}

// ProductClicked adds one unit of Product to the cart
type ProductClicked struct {
	Product ProductUI
}

// OrderSummaryClicked summarizes the cart and clears it
type OrderSummaryClicked struct{}

func (SearchQuerySubmitted) isAction() {}
func (CategorySelected) isAction()     {}
func (ProductClicked) isAction()       {}
func (OrderSummaryClicked) isAction()  {}

// Event is a one-shot notification, delivered to at most one consumer
type Event interface {
	Name() string
}

// ShowError reports a failed fetch or an empty search
type ShowError struct {
	Err     error  `json:"-"`
	Message string `json:"message"`
}

// OrderSummaryReady carries the cart as it was before being cleared
type OrderSummaryReady struct {
	Summary OrderSummary `json:"summary"`
}

func (ShowError) Name() string         { return "error" }
func (OrderSummaryReady) Name() string { return "order_summary" }
