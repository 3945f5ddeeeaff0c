package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

// versionLayout is fixed width so version tokens also sort by time.
const versionLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NextVersion returns a token strictly after prev.
func NextVersion(prev string) string {
	now := time.Now().UTC()
	if prevTime, err := time.Parse(versionLayout, prev); err == nil && !now.After(prevTime) {
		now = prevTime.Add(time.Nanosecond)
	}
	return now.Format(versionLayout)
}

func (s *SqliteStore) ListAgents(ctx context.Context, q *ListAgentsQuery) ([]*types.Agent, error) {
	db := s.gdb.WithContext(ctx)
	if q != nil && q.WorkspaceID != "" {
		db = db.Where("workspace_id = ?", q.WorkspaceID)
	}

	var agents []*types.Agent
	err := db.Order("created_at DESC").Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (s *SqliteStore) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("id not specified")
	}

	var agent types.Agent
	err := s.gdb.WithContext(ctx).Where("id = ?", id).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &agent, nil
}

func (s *SqliteStore) CreateAgent(ctx context.Context, agent *types.Agent) (*types.Agent, error) {
	if agent.ID == "" {
		agent.ID = system.GenerateAgentID()
	}
	if agent.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}
	if strings.TrimSpace(agent.Name) == "" {
		return nil, fmt.Errorf("name not specified")
	}
	if agent.Status == "" {
		agent.Status = types.AgentStatusDraft
	}

	agent.CreatedAt = time.Now()
	agent.UpdatedAt = NextVersion("")

	err := s.gdb.WithContext(ctx).Create(agent).Error
	if err != nil {
		return nil, err
	}
	return s.GetAgent(ctx, agent.ID)
}

func (s *SqliteStore) UpdateInstructions(ctx context.Context, id string, req *types.UpdateInstructionsRequest, updatedBy string) (*types.Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("id not specified")
	}

	err := s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current types.Agent
		err := tx.Where("id = ?", id).First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if req.ExpectedUpdatedAt != "" && req.ExpectedUpdatedAt != current.UpdatedAt {
			return conflictFrom(&current)
		}

		res := tx.Model(&types.Agent{}).
			Where("id = ? AND updated_at = ?", id, current.UpdatedAt).
			Updates(map[string]any{
				"instructions": req.Instructions,
				"updated_at":   NextVersion(current.UpdatedAt),
				"updated_by":   updatedBy,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else won the race between the read and the write
			if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
				return err
			}
			return conflictFrom(&current)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetAgent(ctx, id)
}

func conflictFrom(agent *types.Agent) error {
	return &types.ConflictError{Conflict: types.Conflict{
		UpdatedBy: agent.UpdatedBy,
		UpdatedAt: agent.UpdatedAt,
	}}
}

func (s *SqliteStore) DuplicateAgent(ctx context.Context, id, name, createdBy string) (*types.Agent, error) {
	source, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = source.Name + " (copy)"
	}

	return s.CreateAgent(ctx, &types.Agent{
		WorkspaceID:  source.WorkspaceID,
		Name:         name,
		Instructions: source.Instructions,
		Status:       types.AgentStatusDraft,
		UpdatedBy:    createdBy,
	})
}
