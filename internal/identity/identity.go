package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/pkg"
)

// Store keeps the identity on the local device.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
}

type Provider struct {
	store Store

	mu       sync.Mutex
	identity entity.Identity
}

func NewProvider(store Store) *Provider {
	return &Provider{
		store: store,
	}
}

// GetOrCreate - returns the device identity, creating and persisting it on first use.
func (that *Provider) GetOrCreate(ctx context.Context) (entity.Identity, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.identity != "" {
		return that.identity, nil
	}

	id, err := that.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load identity: %w", err)
	}

	if id == "" {
		id = pkg.GenerateIdentity()
		if err = that.store.Save(ctx, id); err != nil {
			return "", fmt.Errorf("failed to save identity: %w", err)
		}
	}

	that.identity = entity.Identity(id)

	return that.identity, nil
}
