package tables

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"tables-pos/internal/domain"

	"go.uber.org/zap"
)

// notifyQuery hands the latest query to the observer, replacing any value it
// has not picked up yet.
func (v *ViewModel) notifyQuery(query string) {
	for {
		select {
		case v.queries <- query:
			return
		default:
		}
		select {
		case <-v.queries:
		default:
		}
	}
}

// observeSearchQuery drops repeated queries, then waits for SearchDebounce of
// quiet before evaluating the last one.
func (v *ViewModel) observeSearchQuery(ctx context.Context) {
	var (
		last    string
		hasLast bool
		pending string
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case query := <-v.queries:
			if hasLast && query == last {
				continue
			}
			last, hasLast = query, true
			pending = query
			if timer == nil {
				timer = time.NewTimer(v.opts.SearchDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(v.opts.SearchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			v.evaluateQuery(ctx, pending)
		}
	}
}

func (v *ViewModel) evaluateQuery(ctx context.Context, query string) {
	trimmed := strings.TrimSpace(query)

	switch {
	case trimmed == "":
		interrupted := v.cancelSearch()
		v.update(func(s State) State {
			s.SearchResult = []ProductUI{}
			if interrupted {
				s.IsLoading = false
			}
			return s
		})
	case utf8.RuneCountInString(trimmed) >= v.opts.SearchMinLength:
		v.startSearch(ctx, trimmed)
	}
}

// startSearch cancels the running search, if any, and filters the loaded
// products on the worker pool.
func (v *ViewModel) startSearch(parent context.Context, query string) {
	ctx, cancel := context.WithCancel(parent)

	v.searchMu.Lock()
	if v.searchCancel != nil {
		v.searchCancel()
	}
	v.searchCancel = cancel
	v.searchMu.Unlock()

	v.update(func(s State) State {
		s.IsLoading = true
		return s
	})

	products := v.State().Products

	scheduled := v.submit(func() {
		result := filterProducts(products, query)
		if ctx.Err() != nil {
			return
		}

		if len(result) == 0 {
			v.logger.Debug("Search matched no products", zap.String("query", query))
			v.emitError(domain.ErrNoSearchResult)
		}

		v.update(func(s State) State {
			if ctx.Err() != nil {
				return s
			}
			s.SearchResult = result
			s.IsLoading = false
			return s
		})

		v.searchMu.Lock()
		if ctx.Err() == nil {
			v.searchCancel = nil
		}
		v.searchMu.Unlock()
		cancel()
	})
	if !scheduled {
		cancel()
		v.update(func(s State) State {
			s.IsLoading = false
			return s
		})
	}
}

// cancelSearch reports whether a search was still registered
func (v *ViewModel) cancelSearch() bool {
	v.searchMu.Lock()
	defer v.searchMu.Unlock()

	if v.searchCancel == nil {
		return false
	}
	v.searchCancel()
	v.searchCancel = nil
	return true
}

func filterProducts(products []ProductUI, query string) []ProductUI {
	needle := strings.ToLower(query)
	result := make([]ProductUI, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			result = append(result, p)
		}
	}
	return result
}
