package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/pubsub"
	"github.com/helixml/agentbuilder/api/pkg/simulator"
	"github.com/helixml/agentbuilder/api/pkg/store"
	"github.com/helixml/agentbuilder/api/pkg/system"
)

const APIPrefix = system.APISubPath

type AgentBuilderAPIServer struct {
	Cfg   *config.ServerConfig
	Store store.Store

	pubsub    pubsub.PubSub
	simulator *simulator.Simulator
	clock     clockwork.Clock

	// runs holds the test runs currently streaming, keyed by run id
	runs *xsync.MapOf[string, *activeRun]

	router *mux.Router
}

type Option func(*AgentBuilderAPIServer)

// WithClock replaces the clock pacing simulated steps and run timeouts.
func WithClock(clock clockwork.Clock) Option {
	return func(s *AgentBuilderAPIServer) {
		s.clock = clock
	}
}

func NewServer(
	cfg *config.ServerConfig,
	store store.Store,
	ps pubsub.PubSub,
	opts ...Option,
) (*AgentBuilderAPIServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if ps == nil {
		ps = pubsub.NewNoop()
	}

	apiServer := &AgentBuilderAPIServer{
		Cfg:       cfg,
		Store:     store,
		pubsub:    ps,
		simulator: simulator.New(store),
		clock:     clockwork.NewRealClock(),
		runs:      xsync.NewMapOf[string, *activeRun](),
	}
	for _, opt := range opts {
		opt(apiServer)
	}

	apiServer.router = apiServer.registerRoutes()
	return apiServer, nil
}

// Handler serves the api, e.g. from an httptest server.
func (apiServer *AgentBuilderAPIServer) Handler() http.Handler {
	return apiServer.router
}

func (apiServer *AgentBuilderAPIServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", apiServer.Cfg.WebServer.Host, apiServer.Cfg.WebServer.Port),
		// no write timeout, test run streams stay open up to the run ceiling
		WriteTimeout:      0,
		ReadTimeout:       0,
		ReadHeaderTimeout: time.Second * 60,
		IdleTimeout:       time.Minute * 60,
		Handler:           apiServer.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down api server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("api server listening")

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (apiServer *AgentBuilderAPIServer) registerRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(ErrorLoggingMiddleware)

	insecureRouter := router.PathPrefix(APIPrefix).Subrouter()
	insecureRouter.HandleFunc("/healthz", apiServer.healthz).Methods(http.MethodGet)

	// any route that lives under /api/v1
	authRouter := router.PathPrefix(APIPrefix).Subrouter()
	authRouter.Use(requireAPIKey(apiServer.Cfg.WebServer.APIKey))

	authRouter.HandleFunc("/agents", apiServer.listAgents).Methods(http.MethodGet)
	authRouter.HandleFunc("/agents", apiServer.createAgent).Methods(http.MethodPost)
	authRouter.HandleFunc("/agents/{id}", apiServer.getAgent).Methods(http.MethodGet)
	authRouter.HandleFunc("/agents/{id}/duplicate", apiServer.duplicateAgent).Methods(http.MethodPost)
	authRouter.HandleFunc("/agents/{id}/instructions", apiServer.updateInstructions).Methods(http.MethodPut)
	authRouter.HandleFunc("/agents/{id}/instructions/validate", apiServer.validateInstructions).Methods(http.MethodPost)
	authRouter.HandleFunc("/agents/{id}/instructions/review", apiServer.reviewInstructions).Methods(http.MethodPost)

	authRouter.HandleFunc("/agents/{id}/test-runs", apiServer.startTestRun).Methods(http.MethodPost)
	authRouter.HandleFunc("/agents/{id}/test-runs/{run_id}/cancel", apiServer.cancelTestRun).Methods(http.MethodPost)

	authRouter.HandleFunc("/workspaces/{workspace_id}/test-targets/{kind}", apiServer.searchTestTargets).Methods(http.MethodGet)

	return router
}

func (apiServer *AgentBuilderAPIServer) healthz(rw http.ResponseWriter, _ *http.Request) {
	writeResponse(rw, map[string]any{
		"status":     "ok",
		"activeRuns": apiServer.ActiveRuns(),
	}, http.StatusOK)
}

func getID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func writeResponse(rw http.ResponseWriter, data interface{}, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")

	rw.WriteHeader(statusCode)

	if data == nil {
		return
	}

	err := json.NewEncoder(rw).Encode(data)
	if err != nil {
		log.Err(err).Msg("error writing response")
		http.Error(rw, "Internal server error", http.StatusInternalServerError)
	}
}

func writeErrResponse(rw http.ResponseWriter, err error, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	_ = json.NewEncoder(rw).Encode(&system.HTTPError{
		StatusCode: statusCode,
		Message:    err.Error(),
	})
}
