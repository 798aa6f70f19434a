package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tables-pos/internal/domain"
	"tables-pos/internal/middleware"
	"tables-pos/internal/service"
	"tables-pos/internal/tables"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keepAliveInterval = 15 * time.Second

// SearchRequest represents the search payload
type SearchRequest struct {
	Query string `json:"query" validate:"max=100"`
}

// SelectCategoryRequest represents the category selection payload
type SelectCategoryRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// ProductClickRequest represents the add-to-cart payload
type ProductClickRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

// Screen is the view model surface the handler drives
type Screen interface {
	State() tables.State
	Events() <-chan tables.Event
	Subscribe(fn func(tables.State)) (func(), error)
	Dispatch(action tables.Action)
	CloseOrder() tables.OrderSummary
}

// TablesHandler handles HTTP requests for the tables screen
type TablesHandler struct {
	screen  Screen
	catalog service.CategoryService
	logger  *zap.Logger
}

// NewTablesHandler creates a new TablesHandler. catalog may be nil, which
// leaves the categories route unregistered.
func NewTablesHandler(screen Screen, catalog service.CategoryService, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{
		screen:  screen,
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all tables routes
func (h *TablesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tables", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/stream", h.Stream)
		r.Post("/search", h.Search)
		r.Post("/categories/select", h.SelectCategory)
		r.Post("/products/click", h.ClickProduct)
		r.Post("/order-summary", h.OrderSummary)
		if h.catalog != nil {
			r.Get("/categories", h.GetCategories)
		}
	})
}

// GetCategories loads the categories through the remote-first catalog,
// independent of the screen state.
func (h *TablesHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.GetCategories(r.Context())
	if err != nil {
		if !domain.IsCancellation(err) {
			h.logger.Warn("Failed to load categories", zap.Error(err))
		}
		middleware.RespondWithDomainError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// GetState returns the current snapshot
func (h *TablesHandler) GetState(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.screen.State())
}

// Search stores the query; results arrive on the stream after the debounce
func (h *TablesHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.screen.Dispatch(tables.SearchQuerySubmitted{Query: req.Query})
	middleware.RespondWithJSON(w, http.StatusAccepted, map[string]string{"query": req.Query})
}

// SelectCategory starts loading the products of the category at index
func (h *TablesHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var req SelectCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	state := h.screen.State()
	category, ok := state.Category(*req.Index)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
		return
	}

	h.screen.Dispatch(tables.CategorySelected{
		Index:    *req.Index,
		Category: tables.CategoryUI{ID: category.ID, Name: category.Name},
	})

	h.logger.Debug("Category selected", zap.Int("index", *req.Index), zap.Int("category_id", category.ID))
	middleware.RespondWithJSON(w, http.StatusAccepted, map[string]int{"index": *req.Index})
}

// ClickProduct adds one unit of a loaded product to the cart
func (h *TablesHandler) ClickProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductClickRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, ok := h.screen.State().Product(req.ProductID)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	h.screen.Dispatch(tables.ProductClicked{Product: product})
	middleware.RespondWithJSON(w, http.StatusOK, h.screen.State())
}

// OrderSummary returns the cart and clears it
func (h *TablesHandler) OrderSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.screen.CloseOrder()

	h.logger.Info("Order summary created",
		zap.String("order_id", summary.ID.String()),
		zap.Int("lines", len(summary.Lines)),
		zap.String("total", summary.FormattedTotal),
		zap.String("terminal_id", middleware.TerminalID(r)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// Stream subscribes to the screen and writes state snapshots and one-shot
// events as server-sent events until the client disconnects.
func (h *TablesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Only the latest snapshot matters to a slow client
	states := make(chan tables.State, 1)
	unsubscribe, err := h.screen.Subscribe(func(s tables.State) {
		select {
		case states <- s:
		default:
			select {
			case <-states:
			default:
			}
			select {
			case states <- s:
			default:
			}
		}
	})
	if err != nil {
		h.logger.Error("Failed to subscribe to screen", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to open stream")
		return
	}
	defer unsubscribe()

	// Streams outlive the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Could not clear stream write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	terminalID := middleware.TerminalID(r)
	h.logger.Debug("Stream opened", zap.String("terminal_id", terminalID))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("Stream closed", zap.String("terminal_id", terminalID))
			return
		case s := <-states:
			if err := writeEvent(w, "state", s); err != nil {
				h.logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case ev := <-h.screen.Events():
			if err := writeEvent(w, ev.Name(), ev); err != nil {
				h.logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func (h *TablesHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		message := "invalid request body"
		if errors.Is(err, middleware.ErrEmptyBody) {
			message = err.Error()
		}
		middleware.RespondWithError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

func writeEvent(w http.ResponseWriter, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
