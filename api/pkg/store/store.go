package store

import (
	"context"
	"errors"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

var ErrNotFound = errors.New("not found")

type ListAgentsQuery struct {
	WorkspaceID string
}

//go:generate mockgen -source $GOFILE -destination store_mocks.go -package $GOPACKAGE

type Store interface {
	ListAgents(ctx context.Context, q *ListAgentsQuery) ([]*types.Agent, error)
	GetAgent(ctx context.Context, id string) (*types.Agent, error)
	CreateAgent(ctx context.Context, agent *types.Agent) (*types.Agent, error)
	// UpdateInstructions writes new instructions when expectedUpdatedAt is
	// empty or still matches. Otherwise it returns *types.ConflictError with
	// the current version.
	UpdateInstructions(ctx context.Context, id string, req *types.UpdateInstructionsRequest, updatedBy string) (*types.Agent, error)
	DuplicateAgent(ctx context.Context, id, name, createdBy string) (*types.Agent, error)

	GetContact(ctx context.Context, id string) (*types.Contact, error)
	CreateContact(ctx context.Context, contact *types.Contact) (*types.Contact, error)
	GetDeal(ctx context.Context, id string) (*types.Deal, error)
	CreateDeal(ctx context.Context, deal *types.Deal) (*types.Deal, error)
	SearchTestTargets(ctx context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error)
}
