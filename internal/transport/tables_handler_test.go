package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tables-pos/internal/domain"
	"tables-pos/internal/middleware"
	"tables-pos/internal/tables"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock services for testing
type mockCategoryService struct {
	categories []domain.Category
	err        error
}

func (m *mockCategoryService) GetCategories(ctx context.Context) ([]domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

type mockProductService struct {
	products map[int][]domain.Product
}

func (m *mockProductService) GetProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	return m.products[category.ID], nil
}

var drinks = domain.Category{ID: 3, Name: "Drinks"}

func newTestRouter(t *testing.T) (*chi.Mux, *tables.ViewModel) {
	t.Helper()

	categories := &mockCategoryService{categories: []domain.Category{drinks}}
	products := &mockProductService{products: map[int][]domain.Product{
		drinks.ID: {
			{ID: 30, Category: drinks, Name: "Espresso", Price: 2.5},
			{ID: 31, Category: drinks, Name: "Iced Tea", Price: 3.2},
		},
	}}

	opts := tables.DefaultOptions()
	opts.SearchDebounce = 10 * time.Millisecond
	opts.StopTimeout = 20 * time.Millisecond
	opts.WorkerPoolSize = 2

	vm, err := tables.New(categories, products, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create view model: %v", err)
	}
	t.Cleanup(vm.Close)

	router := chi.NewRouter()
	NewTablesHandler(vm, categories, zap.NewNop()).RegisterRoutes(router)
	return router, vm
}

func activate(t *testing.T, vm *tables.ViewModel) {
	t.Helper()
	unsubscribe, err := vm.Subscribe(func(tables.State) {})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	t.Cleanup(unsubscribe)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := vm.State(); len(s.Products) == 2 && !s.IsLoading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Products were not loaded")
}

func doJSON(router http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetState(t *testing.T) {
	router, vm := newTestRouter(t)
	activate(t, vm)

	w := doJSON(router, "GET", "/api/tables/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var state tables.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(state.Categories) != 1 || state.Categories[0].Name != "Drinks" {
		t.Errorf("Unexpected categories: %v", state.Categories)
	}
}

func TestProperty_SearchAcceptsQueriesUpToLimit(t *testing.T) {
	router, _ := newTestRouter(t)
	properties := gopter.NewProperties(nil)

	properties.Property("queries up to 100 characters are accepted, longer ones rejected", prop.ForAll(
		func(n int) bool {
			w := doJSON(router, "POST", "/api/tables/search", SearchRequest{Query: strings.Repeat("e", n)})
			if n <= 100 {
				return w.Code == http.StatusAccepted
			}
			return w.Code == http.StatusBadRequest
		},
		gen.IntRange(0, 150),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSearchStoresQuery(t *testing.T) {
	router, vm := newTestRouter(t)

	w := doJSON(router, "POST", "/api/tables/search", SearchRequest{Query: "tea"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if vm.State().SearchQuery != "tea" {
		t.Errorf("Query not stored, got %q", vm.State().SearchQuery)
	}
}

func TestSelectCategoryValidation(t *testing.T) {
	router, vm := newTestRouter(t)
	activate(t, vm)

	if w := doJSON(router, "POST", "/api/tables/categories/select", map[string]interface{}{}); w.Code != http.StatusBadRequest {
		t.Errorf("Missing index should be 400, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/api/tables/categories/select", map[string]int{"index": -1}); w.Code != http.StatusBadRequest {
		t.Errorf("Negative index should be 400, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/api/tables/categories/select", map[string]int{"index": 5}); w.Code != http.StatusNotFound {
		t.Errorf("Unknown index should be 404, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/api/tables/categories/select", map[string]int{"index": 0}); w.Code != http.StatusAccepted {
		t.Errorf("Valid index should be 202, got %d", w.Code)
	}
}

func TestClickProductAndOrderSummary(t *testing.T) {
	router, vm := newTestRouter(t)
	activate(t, vm)

	if w := doJSON(router, "POST", "/api/tables/products/click", ProductClickRequest{ProductID: 99}); w.Code != http.StatusNotFound {
		t.Errorf("Unknown product should be 404, got %d", w.Code)
	}

	for i := 0; i < 2; i++ {
		w := doJSON(router, "POST", "/api/tables/products/click", ProductClickRequest{ProductID: 30})
		if w.Code != http.StatusOK {
			t.Fatalf("Click failed with %d", w.Code)
		}
	}
	doJSON(router, "POST", "/api/tables/products/click", ProductClickRequest{ProductID: 31})

	state := vm.State()
	if state.OrderedProducts != 3 || state.TotalPrice != 8.2 {
		t.Errorf("Unexpected cart: count=%d total=%v", state.OrderedProducts, state.TotalPrice)
	}

	w := doJSON(router, "POST", "/api/tables/order-summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var summary tables.OrderSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(summary.Lines) != 2 || summary.OrderedCount != "03" || summary.FormattedTotal != "8.20" {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	if state := vm.State(); state.OrderedProducts != 0 || state.TotalPrice != 0 {
		t.Errorf("Cart not cleared: %+v", state)
	}
}

func TestInvalidBodyIsRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/tables/products/click", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	var response middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if response.Error.Message != "invalid request body" {
		t.Errorf("Unexpected message %q", response.Error.Message)
	}
}

func TestStreamSendsStateAndEvents(t *testing.T) {
	router, vm := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/tables/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Unexpected content type %q", ct)
	}

	// The stream activates the screen, so products load without other subscribers
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if len(vm.State().Products) == 2 {
				vm.Dispatch(tables.SearchQuerySubmitted{Query: "zz"})
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	seen := map[string]bool{}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			seen[name] = true
		}
		if seen["state"] && seen["error"] {
			return
		}
	}
	t.Errorf("Expected state and error events, saw %v", seen)
}

func TestGetCategories(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, "GET", "/api/tables/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(body.Categories) != 1 || body.Categories[0] != drinks {
		t.Errorf("Unexpected categories: %v", body.Categories)
	}
}

func TestGetCategoriesRendersCatalogErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"offline without cache", domain.ErrNoInternet, http.StatusServiceUnavailable},
		{"upstream timeout", domain.ErrRequestTimeout, http.StatusGatewayTimeout},
		{"local store failure", fmt.Errorf("read cache: %w", domain.ErrLocal), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := chi.NewRouter()
			NewTablesHandler(nil, &mockCategoryService{err: tc.err}, zap.NewNop()).RegisterRoutes(router)

			w := doJSON(router, "GET", "/api/tables/categories", nil)
			if w.Code != tc.want {
				t.Fatalf("Expected %d, got %d", tc.want, w.Code)
			}

			var response middleware.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if response.Error.Message != domain.Message(tc.err) {
				t.Errorf("Expected message %q, got %q", domain.Message(tc.err), response.Error.Message)
			}
		})
	}
}

func TestCategoriesRouteNeedsCatalog(t *testing.T) {
	router := chi.NewRouter()
	NewTablesHandler(nil, nil, zap.NewNop()).RegisterRoutes(router)

	if w := doJSON(router, "GET", "/api/tables/categories", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a catalog, got %d", w.Code)
	}
}
