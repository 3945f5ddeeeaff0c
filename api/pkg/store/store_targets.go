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

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *SqliteStore) GetContact(ctx context.Context, id string) (*types.Contact, error) {
	var contact types.Contact
	err := s.gdb.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func (s *SqliteStore) CreateContact(ctx context.Context, contact *types.Contact) (*types.Contact, error) {
	if contact.ID == "" {
		contact.ID = system.GenerateContactID()
	}
	if contact.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}
	contact.CreatedAt = time.Now()

	err := s.gdb.WithContext(ctx).Create(contact).Error
	if err != nil {
		return nil, err
	}
	return s.GetContact(ctx, contact.ID)
}

func (s *SqliteStore) GetDeal(ctx context.Context, id string) (*types.Deal, error) {
	var deal types.Deal
	err := s.gdb.WithContext(ctx).Where("id = ?", id).First(&deal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deal, nil
}

func (s *SqliteStore) CreateDeal(ctx context.Context, deal *types.Deal) (*types.Deal, error) {
	if deal.ID == "" {
		deal.ID = system.GenerateDealID()
	}
	if deal.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}
	if deal.Currency == "" {
		deal.Currency = "USD"
	}
	deal.CreatedAt = time.Now()

	err := s.gdb.WithContext(ctx).Create(deal).Error
	if err != nil {
		return nil, err
	}
	return s.GetDeal(ctx, deal.ID)
}

// SearchLimit applies the default and maximum page size.
func SearchLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	return min(limit, maxSearchLimit)
}

// SearchTestTargets pages through contacts or deals ordered by ID. The
// cursor is the last ID of the previous page.
func (s *SqliteStore) SearchTestTargets(ctx context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
	if q.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace not specified")
	}

	limit := SearchLimit(q.Limit)

	db := s.gdb.WithContext(ctx).Where("workspace_id = ?", q.WorkspaceID)
	if q.Cursor != "" {
		db = db.Where("id > ?", q.Cursor)
	}
	term := "%" + strings.ToLower(strings.TrimSpace(q.SearchTerm)) + "%"

	page := &types.TestTargetPage{Targets: []*types.TestTargetOption{}}

	switch q.Type {
	case types.TestTargetTypeContact:
		if q.SearchTerm != "" {
			db = db.Where("(LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?)", term, term, term)
		}
		var contacts []*types.Contact
		if err := db.Order("id ASC").Limit(limit + 1).Find(&contacts).Error; err != nil {
			return nil, err
		}
		if len(contacts) > limit {
			contacts = contacts[:limit]
			page.HasMore = true
		}
		for _, contact := range contacts {
			page.Targets = append(page.Targets, contact.Option())
		}

	case types.TestTargetTypeDeal:
		if q.SearchTerm != "" {
			db = db.Where("(LOWER(name) LIKE ? OR LOWER(stage) LIKE ?)", term, term)
		}
		var deals []*types.Deal
		if err := db.Order("id ASC").Limit(limit + 1).Find(&deals).Error; err != nil {
			return nil, err
		}
		if len(deals) > limit {
			deals = deals[:limit]
			page.HasMore = true
		}
		for _, deal := range deals {
			page.Targets = append(page.Targets, deal.Option())
		}

	default:
		return nil, fmt.Errorf("unknown test target type %q", q.Type)
	}

	if page.HasMore {
		page.NextCursor = page.Targets[len(page.Targets)-1].ID
	}
	return page, nil
}
