package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

// searchTestTargets godoc
// @Summary Search test targets
// @Description Page through the contacts or deals of a workspace. Pass nextCursor back as cursor for the following page.
// @Tags    test-targets
// @Success 200 {object} types.TestTargetPage
// @Param workspace_id path string true "Workspace ID"
// @Param kind path string true "contacts or deals"
// @Param search query string false "Search term"
// @Param cursor query string false "Cursor from the previous page"
// @Param limit query int false "Page size"
// @Router /api/v1/workspaces/{workspace_id}/test-targets/{kind} [get]
func (apiServer *AgentBuilderAPIServer) searchTestTargets(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var targetType types.TestTargetType
	switch vars["kind"] {
	case "contacts":
		targetType = types.TestTargetTypeContact
	case "deals":
		targetType = types.TestTargetTypeDeal
	default:
		writeErrResponse(rw, fmt.Errorf("unknown test target kind %q, expected contacts or deals", vars["kind"]), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()

	limit := 0
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeErrResponse(rw, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	page, err := apiServer.Store.SearchTestTargets(r.Context(), &types.TestTargetSearchQuery{
		WorkspaceID: vars["workspace_id"],
		Type:        targetType,
		SearchTerm:  query.Get("search"),
		Cursor:      query.Get("cursor"),
		Limit:       limit,
	})
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, page, http.StatusOK)
}
