// Package memorystore provides an in-memory implementation of store.Store for
// tests and for running the server without a database file.
package memorystore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/helixml/agentbuilder/api/pkg/store"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

// MemoryStore implements store.Store with in-memory maps.
type MemoryStore struct {
	agents   map[string]*types.Agent
	contacts map[string]*types.Contact
	deals    map[string]*types.Deal
	mu       sync.RWMutex

	// OnAgentUpdated is called after every successful UpdateInstructions.
	OnAgentUpdated func(*types.Agent)
}

var _ store.Store = (*MemoryStore)(nil)

// New creates a new in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		agents:   make(map[string]*types.Agent),
		contacts: make(map[string]*types.Contact),
		deals:    make(map[string]*types.Deal),
	}
}

// --- Test helpers (not part of store.Store interface) ---

// GetAllAgents returns all agents ordered by ID.
func (m *MemoryStore) GetAllAgents() []*types.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*types.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// PutAgent stores an agent as is, version token included.
func (m *MemoryStore) PutAgent(agent *types.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *agent
	m.agents[agent.ID] = &cp
}

// --- Agent methods ---

func (m *MemoryStore) ListAgents(_ context.Context, q *store.ListAgentsQuery) ([]*types.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*types.Agent{}
	for _, a := range m.agents {
		if q != nil && q.WorkspaceID != "" && a.WorkspaceID != q.WorkspaceID {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) GetAgent(_ context.Context, id string) (*types.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) CreateAgent(_ context.Context, agent *types.Agent) (*types.Agent, error) {
	if agent.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}
	if strings.TrimSpace(agent.Name) == "" {
		return nil, fmt.Errorf("name not specified")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *agent
	if cp.ID == "" {
		cp.ID = system.GenerateAgentID()
	}
	if cp.Status == "" {
		cp.Status = types.AgentStatusDraft
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = store.NextVersion("")
	m.agents[cp.ID] = &cp

	result := cp
	return &result, nil
}

func (m *MemoryStore) UpdateInstructions(_ context.Context, id string, req *types.UpdateInstructionsRequest, updatedBy string) (*types.Agent, error) {
	m.mu.Lock()
	a, ok := m.agents[id]
	if !ok {
		m.mu.Unlock()
		return nil, store.ErrNotFound
	}
	if req.ExpectedUpdatedAt != "" && req.ExpectedUpdatedAt != a.UpdatedAt {
		conflict := &types.ConflictError{Conflict: types.Conflict{
			UpdatedBy: a.UpdatedBy,
			UpdatedAt: a.UpdatedAt,
		}}
		m.mu.Unlock()
		return nil, conflict
	}

	a.Instructions = req.Instructions
	a.UpdatedAt = store.NextVersion(a.UpdatedAt)
	a.UpdatedBy = updatedBy
	cp := *a
	m.mu.Unlock()

	if m.OnAgentUpdated != nil {
		m.OnAgentUpdated(&cp)
	}
	return &cp, nil
}

func (m *MemoryStore) DuplicateAgent(ctx context.Context, id, name, createdBy string) (*types.Agent, error) {
	source, err := m.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = source.Name + " (copy)"
	}
	return m.CreateAgent(ctx, &types.Agent{
		WorkspaceID:  source.WorkspaceID,
		Name:         name,
		Instructions: source.Instructions,
		Status:       types.AgentStatusDraft,
		UpdatedBy:    createdBy,
	})
}

// --- Test target methods ---

func (m *MemoryStore) GetContact(_ context.Context, id string) (*types.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) CreateContact(_ context.Context, contact *types.Contact) (*types.Contact, error) {
	if contact.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *contact
	if cp.ID == "" {
		cp.ID = system.GenerateContactID()
	}
	cp.CreatedAt = time.Now()
	m.contacts[cp.ID] = &cp

	result := cp
	return &result, nil
}

func (m *MemoryStore) GetDeal(_ context.Context, id string) (*types.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) CreateDeal(_ context.Context, deal *types.Deal) (*types.Deal, error) {
	if deal.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *deal
	if cp.ID == "" {
		cp.ID = system.GenerateDealID()
	}
	if cp.Currency == "" {
		cp.Currency = "USD"
	}
	cp.CreatedAt = time.Now()
	m.deals[cp.ID] = &cp

	result := cp
	return &result, nil
}

func (m *MemoryStore) SearchTestTargets(_ context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
	if q.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))
	var options []*types.TestTargetOption

	switch q.Type {
	case types.TestTargetTypeContact:
		for _, c := range m.contacts {
			if c.WorkspaceID != q.WorkspaceID {
				continue
			}
			if !matches(term, c.FullName(), c.Email, c.Company) {
				continue
			}
			options = append(options, c.Option())
		}
	case types.TestTargetTypeDeal:
		for _, d := range m.deals {
			if d.WorkspaceID != q.WorkspaceID {
				continue
			}
			if !matches(term, d.Name, d.Stage) {
				continue
			}
			options = append(options, d.Option())
		}
	default:
		return nil, fmt.Errorf("unknown test target type %q", q.Type)
	}

	sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })

	page := &types.TestTargetPage{Targets: []*types.TestTargetOption{}}
	limit := store.SearchLimit(q.Limit)
	for _, option := range options {
		if q.Cursor != "" && option.ID <= q.Cursor {
			continue
		}
		if len(page.Targets) == limit {
			page.HasMore = true
			break
		}
		page.Targets = append(page.Targets, option)
	}
	if page.HasMore {
		page.NextCursor = page.Targets[len(page.Targets)-1].ID
	}
	return page, nil
}

func matches(term string, values ...string) bool {
	if term == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
