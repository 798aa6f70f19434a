package tables

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tables-pos/internal/config"
	"tables-pos/internal/domain"
	"tables-pos/internal/service"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const eventBufferSize = 32

// Options tunes the screen timings
type Options struct {
	SearchDebounce  time.Duration
	SearchMinLength int
	StopTimeout     time.Duration
	WorkerPoolSize  int
}

// DefaultOptions returns the production timings
func DefaultOptions() Options {
	return Options{
		SearchDebounce:  500 * time.Millisecond,
		SearchMinLength: 2,
		StopTimeout:     3 * time.Second,
		WorkerPoolSize:  16,
	}
}

// OptionsFromConfig maps screen configuration, keeping defaults for unset values
func OptionsFromConfig(cfg config.ScreenConfig) Options {
	opts := DefaultOptions()
	if cfg.SearchDebounce > 0 {
		opts.SearchDebounce = cfg.SearchDebounce
	}
	if cfg.SearchMinLength > 0 {
		opts.SearchMinLength = cfg.SearchMinLength
	}
	if cfg.StopTimeout > 0 {
		opts.StopTimeout = cfg.StopTimeout
	}
	if cfg.WorkerPoolSize > 0 {
		opts.WorkerPoolSize = cfg.WorkerPoolSize
	}
	return opts
}

// ViewModel is the tables screen state machine. State changes are published
// to subscribers in the order they are applied; one-shot events go to Events.
type ViewModel struct {
	categories service.CategoryService
	products   service.ProductService
	opts       Options
	logger     *zap.Logger

	pool *ants.Pool
	bus  EventBus.Bus

	mu    sync.Mutex
	pubMu sync.Mutex // guards topics, held while publishing
	state State

	// One topic per subscriber. EventBus matches handlers by code pointer, so
	// closures made from one literal cannot share a topic and unsubscribe apart.
	topics map[int]string

	events  chan Event
	queries chan string

	ctx    context.Context
	cancel context.CancelFunc

	subMu       sync.Mutex
	subscribers int
	nextSubID   int
	active      bool
	runCancel   context.CancelFunc
	stopTimer   *time.Timer

	searchMu     sync.Mutex
	searchCancel context.CancelFunc

	generation atomic.Uint64
}

// New creates a ViewModel. The screen stays idle until the first Subscribe.
func New(categories service.CategoryService, products service.ProductService, opts Options, logger *zap.Logger) (*ViewModel, error) {
	pool, err := ants.NewPool(opts.WorkerPoolSize, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("Background task panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ViewModel{
		categories: categories,
		products:   products,
		opts:       opts,
		logger:     logger,
		pool:       pool,
		bus:        EventBus.New(),
		topics:     make(map[int]string),
		events:     make(chan Event, eventBufferSize),
		queries:    make(chan string, 1),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// State returns the current snapshot
func (v *ViewModel) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Events returns the one-shot event channel
func (v *ViewModel) Events() <-chan Event {
	return v.events
}

// Subscribe registers fn for state snapshots and immediately sends it the
// current one. The first subscriber activates the screen. fn runs on the
// goroutine that applied the change and must not dispatch actions.
func (v *ViewModel) Subscribe(fn func(State)) (unsubscribe func(), err error) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextSubID
	v.nextSubID++
	topic := fmt.Sprintf("tables:state:%d", id)

	v.mu.Lock()
	current := v.state
	v.pubMu.Lock()
	v.mu.Unlock()
	err = v.bus.Subscribe(topic, fn)
	if err == nil {
		v.topics[id] = topic
		fn(current)
	}
	v.pubMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	v.subscribers++
	if v.stopTimer != nil {
		v.stopTimer.Stop()
		v.stopTimer = nil
	}
	if !v.active {
		v.activate()
	}

	var once sync.Once
	return func() {
		once.Do(func() { v.unsubscribe(id, fn) })
	}, nil
}

func (v *ViewModel) unsubscribe(id int, fn func(State)) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	v.pubMu.Lock()
	topic := v.topics[id]
	delete(v.topics, id)
	if err := v.bus.Unsubscribe(topic, fn); err != nil {
		v.logger.Warn("Failed to unsubscribe", zap.String("topic", topic), zap.Error(err))
	}
	v.pubMu.Unlock()

	v.subscribers--
	if v.subscribers == 0 && v.active {
		v.stopTimer = time.AfterFunc(v.opts.StopTimeout, v.deactivateIfIdle)
	}
}

// activate runs with subMu held
func (v *ViewModel) activate() {
	runCtx, cancel := context.WithCancel(v.ctx)
	v.runCancel = cancel
	v.active = true

	v.logger.Debug("Tables screen activated")

	go v.observeSearchQuery(runCtx)
	v.notifyQuery(v.State().SearchQuery)
	v.fetchCategories()
}

func (v *ViewModel) deactivateIfIdle() {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	if v.subscribers > 0 || !v.active {
		return
	}
	v.deactivate()
}

// deactivate runs with subMu held
func (v *ViewModel) deactivate() {
	v.active = false
	v.stopTimer = nil
	if v.runCancel != nil {
		v.runCancel()
		v.runCancel = nil
	}
	if v.cancelSearch() {
		v.update(func(s State) State {
			s.IsLoading = false
			return s
		})
	}
	v.logger.Debug("Tables screen deactivated")
}

// Active reports whether the screen has live subscribers or is in its stop grace period
func (v *ViewModel) Active() bool {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	return v.active
}

// Dispatch applies a user action
func (v *ViewModel) Dispatch(action Action) {
	switch a := action.(type) {
	case SearchQuerySubmitted:
		v.update(func(s State) State {
			s.SearchQuery = a.Query
			return s
		})
		v.notifyQuery(a.Query)
	case CategorySelected:
		v.selectCategory(a.Index, domain.Category{ID: a.Category.ID, Name: a.Category.Name})
	case ProductClicked:
		v.clickProduct(a.Product)
	case OrderSummaryClicked:
		v.CloseOrder()
	}
}

// Close stops all background work. The ViewModel is unusable afterwards.
func (v *ViewModel) Close() {
	v.subMu.Lock()
	if v.stopTimer != nil {
		v.stopTimer.Stop()
	}
	if v.active {
		v.deactivate()
	}
	v.subMu.Unlock()

	v.cancel()
	v.pool.Release()
}

// update replaces the snapshot and publishes it. pubMu is taken before mu is
// released so subscribers see snapshots in the order they were applied.
// Lock order is subMu, mu, pubMu.
func (v *ViewModel) update(fn func(State) State) State {
	v.mu.Lock()
	next := fn(v.state)
	v.state = next
	v.pubMu.Lock()
	v.mu.Unlock()

	for _, topic := range v.topics {
		v.bus.Publish(topic, next)
	}
	v.pubMu.Unlock()

	return next
}

func (v *ViewModel) emit(ev Event) {
	select {
	case v.events <- ev:
	default:
		v.logger.Warn("Dropping screen event, no consumer", zap.String("event", ev.Name()))
	}
}

func (v *ViewModel) emitError(err error) {
	v.emit(ShowError{Err: err, Message: domain.Message(err)})
}

func (v *ViewModel) submit(task func()) bool {
	if err := v.pool.Submit(task); err != nil {
		v.logger.Error("Failed to schedule background task", zap.Error(err))
		return false
	}
	return true
}

func (v *ViewModel) fetchCategories() {
	v.update(func(s State) State {
		s.IsLoading = true
		return s
	})

	scheduled := v.submit(func() {
		categories, err := v.categories.GetCategories(v.ctx)
		if err != nil {
			v.update(func(s State) State {
				s.IsLoading = false
				return s
			})
			if !domain.IsCancellation(err) {
				v.logger.Warn("Failed to load categories", zap.Error(err))
				v.emitError(err)
			}
			return
		}

		if len(categories) == 0 {
			v.update(func(s State) State {
				s.IsLoading = false
				s.Categories = toCategoryUIs(categories)
				return s
			})
			return
		}

		// Loading stays on until the first category's products arrive
		gen := v.generation.Add(1)
		v.update(func(s State) State {
			s.Categories = toCategoryUIs(categories)
			return s
		})

		// Submit blocks while the pool is full, so a pool task never submits
		go v.fetchProducts(gen, 0, categories[0])
	})
	if !scheduled {
		v.update(func(s State) State {
			s.IsLoading = false
			return s
		})
	}
}

// selectCategory fetches the category's products. Each call takes a new
// generation; a result whose generation is no longer current is discarded.
func (v *ViewModel) selectCategory(index int, category domain.Category) {
	gen := v.generation.Add(1)

	v.update(func(s State) State {
		s.IsLoading = true
		return s
	})

	v.fetchProducts(gen, index, category)
}

func (v *ViewModel) fetchProducts(gen uint64, index int, category domain.Category) {
	scheduled := v.submit(func() {
		products, err := v.products.GetProducts(v.ctx, category)
		stale := false

		v.update(func(s State) State {
			if v.generation.Load() != gen {
				stale = true
				return s
			}
			s.IsLoading = false
			if err == nil {
				s.SelectedCategoryIndex = index
				s.Products = toProductUIs(products)
			}
			return s
		})

		if stale {
			v.logger.Debug("Discarding stale products result", zap.Int("category_id", category.ID))
			return
		}
		if err != nil && !domain.IsCancellation(err) {
			v.logger.Warn("Failed to load products", zap.Int("category_id", category.ID), zap.Error(err))
			v.emitError(err)
		}
	})
	if !scheduled {
		v.update(func(s State) State {
			if v.generation.Load() == gen {
				s.IsLoading = false
			}
			return s
		})
	}
}

func (v *ViewModel) clickProduct(product ProductUI) {
	v.update(func(s State) State {
		idx := -1
		for i, p := range s.Products {
			if p.ID == product.ID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return s
		}

		products := make([]ProductUI, len(s.Products))
		copy(products, s.Products)
		products[idx].Ordered++

		s.Products = products
		s.OrderedProducts++
		s.TotalPrice = addPrice(s.TotalPrice, products[idx].Price)
		return s
	})
}

// CloseOrder snapshots the cart, emits it as OrderSummaryReady and clears
// every ordered quantity together with the count and total.
func (v *ViewModel) CloseOrder() OrderSummary {
	var summary OrderSummary

	v.update(func(s State) State {
		summary = newOrderSummary(s)

		products := make([]ProductUI, len(s.Products))
		for i, p := range s.Products {
			p.Ordered = 0
			products[i] = p
		}

		s.Products = products
		s.OrderedProducts = 0
		s.TotalPrice = 0
		return s
	})

	v.emit(OrderSummaryReady{Summary: summary})
	return summary
}
