package estimates

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

// MemoryStore keeps estimates for the lifetime of the process.
type MemoryStore struct {
	estimates *xsync.MapOf[string, types.StoredEstimate]
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		estimates: xsync.NewMapOf[string, types.StoredEstimate](),
	}
}

func (m *MemoryStore) Get(_ context.Context, agentID string) (*types.StoredEstimate, error) {
	estimate, ok := m.estimates.Load(agentID)
	if !ok {
		return nil, ErrNotFound
	}
	return &estimate, nil
}

func (m *MemoryStore) Put(_ context.Context, agentID string, estimate *types.StoredEstimate) error {
	if err := validate(agentID, estimate); err != nil {
		return err
	}
	m.estimates.Store(agentID, stamp(estimate))
	return nil
}
