package targets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func option(id string) *types.TestTargetOption {
	return &types.TestTargetOption{ID: id, Type: types.TestTargetTypeContact, Label: id}
}

func TestSearch_CachesPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := client.NewMockClient(ctrl)

	s, err := NewSearcher(fetcher)
	require.NoError(t, err)
	defer s.Close()

	fetcher.EXPECT().SearchTestTargets(gomock.Any(), &types.TestTargetSearchQuery{
		WorkspaceID: "ws_1",
		Type:        types.TestTargetTypeContact,
		SearchTerm:  "ada",
		Limit:       DefaultPageSize,
	}).Return(&types.TestTargetPage{Targets: []*types.TestTargetOption{option("con_1")}}, nil).Times(1)

	q := types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeContact, SearchTerm: " ada "}

	first, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := s.Search(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, second.Targets, 1)
}

func TestSearch_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := client.NewMockClient(ctrl)

	s, err := NewSearcher(fetcher)
	require.NoError(t, err)
	defer s.Close()

	fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).
		Return(&types.TestTargetPage{}, nil).Times(2)

	q := types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeDeal}
	page, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	require.NotNil(t, page.Targets)

	s.Invalidate()
	_, err = s.Search(context.Background(), q)
	require.NoError(t, err)
}

func TestSearch_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	s, err := NewSearcher(client.NewMockClient(ctrl))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Search(context.Background(), types.TestTargetSearchQuery{Type: types.TestTargetTypeContact})
	require.Error(t, err)

	_, err = s.Search(context.Background(), types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeNone})
	require.Error(t, err)
}

func TestSearch_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := client.NewMockClient(ctrl)

	s, err := NewSearcher(fetcher)
	require.NoError(t, err)
	defer s.Close()

	gomock.InOrder(
		fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")),
		fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).Return(&types.TestTargetPage{}, nil),
	)

	q := types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeContact}
	_, err = s.Search(context.Background(), q)
	require.Error(t, err)
	_, err = s.Search(context.Background(), q)
	require.NoError(t, err)
}

func TestAll_FollowsCursors(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := client.NewMockClient(ctrl)

	s, err := NewSearcher(fetcher, WithCacheTTL(0), WithPageSize(2))
	require.NoError(t, err)
	defer s.Close()

	gomock.InOrder(
		fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
				require.Empty(t, q.Cursor)
				require.Equal(t, 2, q.Limit)
				return &types.TestTargetPage{
					Targets:    []*types.TestTargetOption{option("con_1"), option("con_2")},
					HasMore:    true,
					NextCursor: "con_2",
				}, nil
			}),
		fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
				require.Equal(t, "con_2", q.Cursor)
				return &types.TestTargetPage{Targets: []*types.TestTargetOption{option("con_3")}}, nil
			}),
	)

	all, err := s.All(context.Background(), types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeContact}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "con_3", all[2].ID)
}

func TestAll_StopsAtLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := client.NewMockClient(ctrl)

	s, err := NewSearcher(fetcher, WithCacheTTL(0))
	require.NoError(t, err)
	defer s.Close()

	fetcher.EXPECT().SearchTestTargets(gomock.Any(), gomock.Any()).Return(&types.TestTargetPage{
		Targets:    []*types.TestTargetOption{option("con_1"), option("con_2"), option("con_3")},
		HasMore:    true,
		NextCursor: "con_3",
	}, nil).Times(1)

	all, err := s.All(context.Background(), types.TestTargetSearchQuery{WorkspaceID: "ws_1", Type: types.TestTargetTypeContact}, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
