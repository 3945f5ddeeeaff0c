// Package targets looks up the contacts and deals a test run can be
// pointed at.
package targets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	DefaultPageSize = 20
	DefaultCacheTTL = 30 * time.Second

	// maxPages bounds All so a server that always reports more pages cannot
	// keep it looping.
	maxPages = 50
)

// PageFetcher is the part of the backend client used for target lookups.
type PageFetcher interface {
	SearchTestTargets(ctx context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error)
}

type Searcher struct {
	fetcher  PageFetcher
	cache    *ristretto.Cache[string, *types.TestTargetPage]
	cacheTTL time.Duration
	pageSize int
}

type Option func(*Searcher)

// WithCacheTTL sets how long pages are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) { s.cacheTTL = ttl }
}

func WithPageSize(size int) Option {
	return func(s *Searcher) { s.pageSize = size }
}

func NewSearcher(fetcher PageFetcher, opts ...Option) (*Searcher, error) {
	if fetcher == nil {
		return nil, errors.New("target fetcher is required")
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *types.TestTargetPage]{
		NumCounters:        1e4,
		MaxCost:            1000, // pages
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	s := &Searcher{
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Searcher) Close() {
	s.cache.Close()
}

// Invalidate drops every cached page, e.g. after targets were created.
func (s *Searcher) Invalidate() {
	s.cache.Clear()
}

// Search returns one page of targets. Pages are cached per query and cursor.
func (s *Searcher) Search(ctx context.Context, q types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
	if q.WorkspaceID == "" {
		return nil, errors.New("workspace ID is required")
	}
	if q.Type != types.TestTargetTypeContact && q.Type != types.TestTargetTypeDeal {
		return nil, fmt.Errorf("cannot search test targets of type %q", q.Type)
	}
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	if q.Limit <= 0 {
		q.Limit = s.pageSize
	}

	key := cacheKey(q)
	if s.cacheTTL > 0 {
		if cached, found := s.cache.Get(key); found {
			return cached, nil
		}
	}

	page, err := s.fetcher.SearchTestTargets(ctx, &q)
	if err != nil {
		return nil, err
	}
	if page.Targets == nil {
		page.Targets = []*types.TestTargetOption{}
	}

	if s.cacheTTL > 0 {
		s.cache.SetWithTTL(key, page, 1, s.cacheTTL)
		s.cache.Wait()
	}

	log.Debug().
		Str("workspace_id", q.WorkspaceID).
		Str("type", string(q.Type)).
		Str("search", q.SearchTerm).
		Int("results", len(page.Targets)).
		Bool("has_more", page.HasMore).
		Msg("searched test targets")

	return page, nil
}

// All follows cursors until there are no more pages or limit targets were
// collected. A limit of zero means no limit.
func (s *Searcher) All(ctx context.Context, q types.TestTargetSearchQuery, limit int) ([]*types.TestTargetOption, error) {
	var result []*types.TestTargetOption

	for range maxPages {
		page, err := s.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		result = append(result, page.Targets...)

		if limit > 0 && len(result) >= limit {
			return result[:limit], nil
		}
		if !page.HasMore || page.NextCursor == "" {
			return result, nil
		}
		q.Cursor = page.NextCursor
	}

	return result, nil
}

func cacheKey(q types.TestTargetSearchQuery) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", q.WorkspaceID, q.Type, strings.ToLower(q.SearchTerm), q.Cursor, q.Limit)
}
