package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/agentbuilder/api/pkg/autosave"
	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/pubsub"
	"github.com/helixml/agentbuilder/api/pkg/store"
	"github.com/helixml/agentbuilder/api/pkg/testrun"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func TestEditSaveAndTestRun(t *testing.T) {
	ctx := context.Background()

	db, err := store.NewSqliteStore(config.Store{
		Path:        filepath.Join(t.TempDir(), "agentbuilder.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ps, err := pubsub.NewInMemoryNats()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	cfg := &config.ServerConfig{}
	cfg.Editor.MaxLength = 10000

	apiServer, err := NewServer(cfg, db, ps)
	require.NoError(t, err)

	srv := httptest.NewServer(apiServer.Handler())
	t.Cleanup(srv.Close)

	apiClient, err := client.NewClient(srv.URL, "", client.WithUser("alice"))
	require.NoError(t, err)

	agent, err := apiClient.CreateAgent(ctx, &types.Agent{WorkspaceID: testWorkspaceID, Name: "Renewal"})
	require.NoError(t, err)

	contact, err := db.CreateContact(ctx, &types.Contact{
		WorkspaceID: testWorkspaceID,
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
	})
	require.NoError(t, err)

	updates := make(chan *types.Agent, 4)
	sub, err := ps.Subscribe(ctx, pubsub.GetAgentUpdatesTopic(agent.ID), func(payload []byte) error {
		var updated types.Agent
		if err := json.Unmarshal(payload, &updated); err != nil {
			return err
		}
		updates <- &updated
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })

	saver, err := autosave.NewController(ctx, autosave.Options{
		AgentID:        agent.ID,
		Writer:         apiClient,
		Debounce:       10 * time.Millisecond,
		InitialText:    agent.Instructions,
		InitialVersion: agent.UpdatedAt,
	})
	require.NoError(t, err)
	defer saver.Close()

	instructions := "Send email to @contact.email with subject \"Renewal\"\nWait 2 days\nCreate a task to call @contact.firstName"
	saver.OnTextChanged(instructions)

	require.Eventually(t, func() bool {
		return saver.Status() == types.SaveStatusSaved
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case updated := <-updates:
		assert.Equal(t, instructions, updated.Instructions)
		assert.Equal(t, "alice", updated.UpdatedBy)
		assert.Equal(t, saver.State().Version, updated.UpdatedAt)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for agent update")
	}

	saved, err := apiClient.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.Equal(t, instructions, saved.Instructions)

	validation, err := apiClient.ValidateInstructions(ctx, agent.ID)
	require.NoError(t, err)
	require.True(t, validation.Valid)

	runs, err := testrun.NewController(testrun.Options{
		AgentID:      agent.ID,
		Client:       apiClient,
		Estimates:    estimates.NewMemoryStore(),
		Instructions: saved.Instructions,
	})
	require.NoError(t, err)

	target := types.TestTarget{Type: types.TestTargetTypeContact, ID: contact.ID}
	require.NoError(t, runs.StartTest(ctx, target))
	runs.Wait()

	snapshot := runs.Snapshot()
	require.Equal(t, testrun.StatusCompleted, snapshot.Status, snapshot.StreamError)
	require.Len(t, snapshot.Steps, 3)
	require.NotNil(t, snapshot.Result)
	require.True(t, snapshot.Result.Success)
	require.NotNil(t, snapshot.Estimate)
	require.True(t, snapshot.ShowSummary())

	email := snapshot.Steps[0]
	require.NotNil(t, email.RichPreview)
	require.NotNil(t, email.RichPreview.Email)
	assert.Equal(t, "ada@example.com", email.RichPreview.Email.To)

	require.Eventually(t, func() bool {
		return apiServer.ActiveRuns() == 0
	}, time.Second, 10*time.Millisecond)
}
