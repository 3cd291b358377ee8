package cart

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/domain"
	"github.com/stridewear/storefront/internal/snapshot"
)

type mockSnapshots struct {
	mu      sync.Mutex
	items   []domain.Item
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func (m *mockSnapshots) Load(context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	items := make([]domain.Item, len(m.items))
	copy(items, m.items)
	return items, nil
}

func (m *mockSnapshots) Save(_ context.Context, items []domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items = make([]domain.Item, len(items))
	copy(m.items, items)
	return nil
}

func (m *mockSnapshots) saved() []domain.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Item, len(m.items))
	copy(items, m.items)
	return items
}

func (m *mockSnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func setupStore(t *testing.T, snapshots snapshot.Store) *Store {
	t.Helper()
	store := NewStore(snapshots, 10*time.Millisecond, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	store.Hydrate(context.Background())
	return store
}

func item(id, name, price string) domain.Item {
	return domain.Item{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestStore_AddItem_DuplicateKeepsFirstPrice(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	store.AddItem(item("x", "Air Runner", "10"))
	store.AddItem(item("x", "Air Runner", "99"))

	view := store.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, "x", view.Items[0].ID)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Items[0].Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, view.Total.Equal(decimal.NewFromInt(20)), "got %s", view.Total)
}

func TestStore_UpdateQuantity_ZeroRemovesLine(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	store.AddItem(item("a", "Air Runner", "5"))
	store.AddItem(item("b", "Court Classic", "7"))
	store.UpdateQuantity("a", 0)

	view := store.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, "b", view.Items[0].ID)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(7)))
}

func TestStore_UpdateQuantity_AbsoluteSet(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	store.AddItem(item("a", "Air Runner", "19.99"))
	store.AddItem(item("a", "Air Runner", "19.99"))
	store.UpdateQuantity("a", 5)

	view := store.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("99.95")), "got %s", view.Total)
}

func TestStore_RemoveItem_UnknownID_NoError(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	store.RemoveItem("nonexistent")

	assert.Empty(t, store.Items())
	assert.True(t, store.Total().IsZero())
}

func TestStore_ItemCount_SumsQuantities(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	store.AddItem(item("a", "Air Runner", "1"))
	store.AddItem(item("a", "Air Runner", "1"))
	store.AddItem(item("b", "Court Classic", "1"))

	assert.Equal(t, 3, store.ItemCount())
	assert.Len(t, store.Items(), 2)
}

func TestStore_ClearCart(t *testing.T) {
	snapshots := &mockSnapshots{}
	store := setupStore(t, snapshots)

	store.AddItem(item("a", "Air Runner", "5"))
	store.ClearCart()

	assert.Empty(t, store.Items())
	assert.True(t, store.Total().IsZero())

	// The explicit empty state becomes the persisted snapshot too.
	require.NoError(t, store.Close())
	assert.Empty(t, snapshots.saved())
}

func TestStore_Hydrate_LoadsItemsAndRecomputesTotal(t *testing.T) {
	snapshots := &mockSnapshots{items: []domain.Item{
		{ID: "a", Name: "Air Runner", Price: decimal.RequireFromString("5"), Quantity: 2},
	}}
	store := setupStore(t, snapshots)

	view := store.View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(10)))
}

func TestStore_Hydrate_RunsAtMostOnce(t *testing.T) {
	snapshots := &mockSnapshots{items: []domain.Item{
		{ID: "a", Name: "Air Runner", Price: decimal.RequireFromString("5"), Quantity: 2},
	}}
	store := setupStore(t, snapshots)

	once := store.Items()
	store.Hydrate(context.Background())
	twice := store.Items()

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, snapshots.loads)

	// Mutations never re-trigger hydration.
	store.AddItem(item("b", "Court Classic", "7"))
	assert.Equal(t, 1, snapshots.loads)
}

func TestStore_Hydrate_MissingSnapshot_StartsEmpty(t *testing.T) {
	store := setupStore(t, &mockSnapshots{loadErr: snapshot.ErrNoSnapshot})

	assert.Empty(t, store.Items())
	assert.True(t, store.Total().IsZero())
}

func TestStore_Hydrate_UnreadableSnapshot_StartsEmpty(t *testing.T) {
	store := setupStore(t, &mockSnapshots{loadErr: errors.New("decode snapshot: boom")})

	assert.Empty(t, store.Items())
	assert.Equal(t, 0, store.ItemCount())
}

func TestStore_ReadsBeforeHydration_ReportEmptyCart(t *testing.T) {
	snapshots := &mockSnapshots{items: []domain.Item{
		{ID: "a", Name: "Air Runner", Price: decimal.RequireFromString("5"), Quantity: 2},
	}}
	store := NewStore(snapshots, 10*time.Millisecond, zap.NewNop())
	t.Cleanup(func() { store.Close() })

	assert.Empty(t, store.Items())
	assert.True(t, store.Total().IsZero())
	assert.Equal(t, 0, store.ItemCount())

	store.Hydrate(context.Background())
	assert.Equal(t, 2, store.ItemCount())
}

func TestStore_Close_FlushesPendingWrite(t *testing.T) {
	snapshots := &mockSnapshots{}
	store := setupStore(t, snapshots)

	store.AddItem(item("a", "Air Runner", "5"))
	require.NoError(t, store.Close())

	saved := snapshots.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "a", saved[0].ID)
}

func TestStore_RapidMutations_CoalesceIntoOneWrite(t *testing.T) {
	snapshots := &mockSnapshots{}
	store := NewStore(snapshots, 50*time.Millisecond, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	store.Hydrate(context.Background())

	for i := 0; i < 10; i++ {
		store.AddItem(item("a", "Air Runner", "5"))
	}

	require.Eventually(t, func() bool {
		saved := snapshots.saved()
		return len(saved) == 1 && saved[0].Quantity == 10
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, snapshots.saveCount())
}

func TestStore_WriteFailure_DoesNotAffectInMemoryState(t *testing.T) {
	snapshots := &mockSnapshots{saveErr: errors.New("disk full")}
	store := setupStore(t, snapshots)

	store.AddItem(item("a", "Air Runner", "5"))

	require.Eventually(t, func() bool {
		return snapshots.saveCount() > 0
	}, time.Second, 5*time.Millisecond)

	view := store.View()
	require.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(5)))
}

func TestStore_OnChange_FiresAfterEveryMutation(t *testing.T) {
	store := setupStore(t, &mockSnapshots{})

	var mu sync.Mutex
	fired := 0
	store.OnChange(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	store.AddItem(item("a", "Air Runner", "5"))
	store.UpdateQuantity("a", 3)
	store.RemoveItem("a")
	store.ClearCart()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, fired)
}

func TestStore_HydrateFromCorruptFile_StartsEmpty(t *testing.T) {
	// End-to-end run of Scenario D against a real snapshot file.
	dir := t.TempDir()
	path := dir + "/cart.json"

	good := snapshot.NewFileStore(path)
	require.NoError(t, good.Save(context.Background(), []domain.Item{
		{ID: "a", Price: decimal.NewFromInt(5), Quantity: 2},
	}))

	// Corrupt the persisted payload, then start a "new session".
	require.NoError(t, os.WriteFile(path, []byte("\xff\xfe not json"), 0o644))

	store := setupStore(t, snapshot.NewFileStore(path))
	assert.Empty(t, store.Items())
	assert.True(t, store.Total().IsZero())
}
