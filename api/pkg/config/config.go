package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ServerConfig configures the development backend served by `agentbuilder serve`.
type ServerConfig struct {
	WebServer WebServer
	Store     Store
	PubSub    PubSub
	TestRuns  TestRuns
	Editor    Editor
}

func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	err := envconfig.Process("", &cfg)
	if err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

type WebServer struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0" description:"The host to bind the api server to."`
	Port int    `envconfig:"SERVER_PORT" default:"8080" description:"The port to bind the api server to."`
	// APIKey, when set, is required as a bearer token on every request.
	APIKey string `envconfig:"SERVER_API_KEY" description:"Bearer token required by the api server."`
}

type Store struct {
	Path        string `envconfig:"DATABASE_PATH" default:"/tmp/agentbuilder/agentbuilder.db" description:"The sqlite file used by the api server."`
	AutoMigrate bool   `envconfig:"DATABASE_AUTO_MIGRATE" default:"true" description:"Should we automatically run the migrations?"`
	Seed        bool   `envconfig:"DATABASE_SEED" default:"true" description:"Should we seed demo agents, contacts and deals?"`
}

type PubSub struct {
	// URL of an external NATS server. Empty starts an embedded one.
	URL string `envconfig:"NATS_URL" description:"NATS server used to deliver test run cancellations."`
}

type TestRuns struct {
	// Timeout is the ceiling after which a test run is truncated and reported as timed out.
	Timeout   time.Duration `envconfig:"TEST_RUN_TIMEOUT" default:"120s" description:"Maximum duration of a simulated test run."`
	StepDelay time.Duration `envconfig:"TEST_RUN_STEP_DELAY" default:"400ms" description:"Delay between simulated steps."`
}
