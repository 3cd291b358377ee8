package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/cart"
	"github.com/stridewear/storefront/internal/snapshot"
)

const (
	// DefaultIdleTTL is how long a session cart may sit untouched
	// before its store is flushed and evicted. The snapshot file stays
	// on disk, so a returning client rehydrates the same cart.
	DefaultIdleTTL = 30 * time.Minute

	sweepInterval = time.Minute
)

type entry struct {
	store    *cart.Store
	lastSeen time.Time
}

// Manager owns one hydrated cart store per client session. Stores are
// created on first access, hydrated from their per-session snapshot
// file before being handed out, and evicted after sitting idle.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	dir        string
	writeDelay time.Duration
	idleTTL    time.Duration
	logger     *zap.Logger

	stopSweep chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewManager(dir string, writeDelay, idleTTL time.Duration, logger *zap.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	m := &Manager{
		entries:    make(map[string]*entry),
		dir:        dir,
		writeDelay: writeDelay,
		idleTTL:    idleTTL,
		logger:     logger,
		stopSweep:  make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sweepLoop()

	return m
}

// NewSessionID mints an id for a client that does not have one yet.
func (m *Manager) NewSessionID() string {
	return uuid.New().String()
}

// ValidID reports whether a client-supplied session id is one we could
// have issued. Ids become file names, so nothing else is accepted.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Cart returns the store for sessionID, creating and hydrating it
// from the persisted snapshot on first access within this process.
func (m *Manager) Cart(ctx context.Context, sessionID string) *cart.Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[sessionID]; ok {
		e.lastSeen = time.Now()
		return e.store
	}

	snapshots := snapshot.NewFileStore(filepath.Join(m.dir, fmt.Sprintf("cart-%s.json", sessionID)))
	store := cart.NewStore(snapshots, m.writeDelay, m.logger)
	store.Hydrate(ctx)

	m.entries[sessionID] = &entry{store: store, lastSeen: time.Now()}
	return store
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopSweep:
			return
		}
	}
}

// evictIdle closes stores that have not been touched within the idle
// TTL. Close flushes the pending snapshot write, so nothing is lost.
func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*cart.Store
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.store)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, store := range idle {
		if err := store.Close(); err != nil {
			m.logger.Warn("cart store close failed", zap.Error(err))
		}
	}
	if len(idle) > 0 {
		m.logger.Info("evicted idle cart sessions", zap.Int("count", len(idle)))
	}
}

// Close stops the sweeper and flushes every live cart store.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopSweep)
		m.wg.Wait()

		m.mu.Lock()
		stores := make([]*cart.Store, 0, len(m.entries))
		for _, e := range m.entries {
			stores = append(stores, e.store)
		}
		m.entries = make(map[string]*entry)
		m.mu.Unlock()

		for _, store := range stores {
			if err := store.Close(); err != nil {
				m.logger.Warn("cart store close failed", zap.Error(err))
			}
		}
	})
	return nil
}
