package snapshot

import (
	"context"
	"errors"

	"github.com/stridewear/storefront/internal/domain"
)

// ErrNoSnapshot is returned by Load when nothing has been persisted
// yet for this cart.
var ErrNoSnapshot = errors.New("no snapshot")

// Payload is the persisted form of a cart. Only the items are stored;
// the total is derived from them on every read and never trusted from
// disk. Unknown fields in a stored payload are ignored on decode.
type Payload struct {
	Items []domain.Item `json:"items"`
}

// Store persists cart snapshots to a durable medium.
type Store interface {
	Load(ctx context.Context) ([]domain.Item, error)
	Save(ctx context.Context, items []domain.Item) error
}
