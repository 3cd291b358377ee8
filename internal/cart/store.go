package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/domain"
	"github.com/stridewear/storefront/internal/snapshot"
)

const (
	// DefaultWriteDelay is how long the store waits after a mutation
	// before flushing the snapshot, coalescing bursts of rapid edits
	// (quantity steppers) into one write.
	DefaultWriteDelay = 100 * time.Millisecond

	persistTimeout = 2 * time.Second
)

// View is an immutable read of the cart handed out to callers. Total
// is recomputed from the items at the moment the view is taken; it is
// never a cached value.
type View struct {
	Items []domain.Item
	Total decimal.Decimal
}

// Store owns the line items of one cart. Mutations apply to the
// in-memory state synchronously and schedule a background snapshot
// write; durability is eventual, never awaited by the caller.
//
// The store starts unhydrated. Until Hydrate runs, reads report the
// empty cart and callers must treat that view as provisional.
type Store struct {
	mu        sync.Mutex
	items     []domain.Item
	hydrated  bool
	listeners []func()

	snapshots snapshot.Store
	logger    *zap.Logger

	writeDelay time.Duration
	dirty      chan struct{}
	stop       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewStore(snapshots snapshot.Store, writeDelay time.Duration, logger *zap.Logger) *Store {
	if writeDelay <= 0 {
		writeDelay = DefaultWriteDelay
	}
	s := &Store{
		snapshots:  snapshots,
		logger:     logger,
		writeDelay: writeDelay,
		dirty:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	s.wg.Add(1)
	go s.writeLoop()

	return s
}

// Hydrate loads the persisted snapshot into memory. The transition to
// the hydrated state is one-directional and happens at most once per
// store; later calls are no-ops, so hydrating twice from the same
// payload yields the same state as hydrating once. A missing or
// unreadable snapshot degrades to the empty cart, never to an error
// the caller has to handle.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return
	}

	items, err := s.snapshots.Load(ctx)
	switch {
	case err == nil:
		// Items load verbatim; the total is always derived fresh.
		s.items = items
	case errors.Is(err, snapshot.ErrNoSnapshot):
		// First visit, nothing persisted yet.
	default:
		s.logger.Warn("cart snapshot unreadable, starting empty", zap.Error(err))
	}
	s.hydrated = true
}

// AddItem adds one unit of candidate. An existing line with the same
// ID keeps its original name/price/image and gains quantity instead.
func (s *Store) AddItem(candidate domain.Item) {
	s.apply(func(items []domain.Item) []domain.Item {
		return domain.Add(items, candidate)
	})
}

// RemoveItem drops the line matching id. Unknown ids are a no-op.
func (s *Store) RemoveItem(id string) {
	s.apply(func(items []domain.Item) []domain.Item {
		return domain.Remove(items, id)
	})
}

// UpdateQuantity sets an absolute quantity for the line matching id.
// A quantity of zero or less removes the line. Unknown ids are a no-op.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.apply(func(items []domain.Item) []domain.Item {
		return domain.SetQuantity(items, id, quantity)
	})
}

// ClearCart empties the cart. The empty state is persisted like any
// other snapshot.
func (s *Store) ClearCart() {
	s.apply(func([]domain.Item) []domain.Item {
		return nil
	})
}

// apply runs one pure transition under the lock, then schedules the
// snapshot write and notifies subscribers. Calls are serialized by the
// mutex: each one observes the result of all prior calls.
func (s *Store) apply(transition func([]domain.Item) []domain.Item) {
	s.mu.Lock()
	s.items = transition(s.items)
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	s.scheduleWrite()
	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers fn to run after every applied mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Items returns a copy of the current line items in insertion order.
func (s *Store) Items() []domain.Item {
	view := s.View()
	return view.Items
}

// Total returns the current cart total, recomputed from the items.
func (s *Store) Total() decimal.Decimal {
	view := s.View()
	return view.Total
}

// ItemCount returns the sum of all line quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return 0
	}
	return domain.Count(s.items)
}

// View returns an immutable snapshot of items and total. Before
// hydration it reports the empty cart.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		return View{Total: decimal.Zero}
	}

	items := make([]domain.Item, len(s.items))
	copy(items, s.items)
	return View{Items: items, Total: domain.Total(items)}
}

// scheduleWrite marks the cart dirty without blocking. Back-to-back
// mutations collapse into a single pending write.
func (s *Store) scheduleWrite() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	timer := time.NewTimer(s.writeDelay)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-s.dirty:
			if !pending {
				timer.Reset(s.writeDelay)
				pending = true
			}
		case <-timer.C:
			pending = false
			s.persist()
		case <-s.stop:
			if !timer.Stop() && pending {
				select {
				case <-timer.C:
				default:
				}
			}
			select {
			case <-s.dirty:
				pending = true
			default:
			}
			if pending {
				s.persist()
			}
			return
		}
	}
}

// persist writes the full current item set. A failed write never rolls
// back or interrupts the in-memory state; losing durability is less
// severe than corrupting the live cart.
func (s *Store) persist() {
	s.mu.Lock()
	items := make([]domain.Item, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.snapshots.Save(ctx, items); err != nil {
		s.logger.Warn("cart snapshot write failed", zap.Error(err))
	}
}

// Close flushes any pending snapshot write and stops the background
// writer. The store must not be mutated after Close.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}
