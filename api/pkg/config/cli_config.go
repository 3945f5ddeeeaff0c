package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type CliConfig struct {
	URL           string `envconfig:"AGENTBUILDER_URL" default:"http://localhost:8080"`
	APIKey        string `envconfig:"AGENTBUILDER_API_KEY"`
	TLSSkipVerify bool   `envconfig:"AGENTBUILDER_TLS_SKIP_VERIFY" default:"false"`
	RetryMax      int    `envconfig:"AGENTBUILDER_RETRY_MAX" default:"3"`
	WorkspaceID   string `envconfig:"AGENTBUILDER_WORKSPACE_ID"`
	User          string `envconfig:"AGENTBUILDER_USER"`

	Estimates Estimates
	Editor    Editor
}

type Estimates struct {
	DatabasePath string `envconfig:"AGENTBUILDER_ESTIMATES_DB" default:"~/.agentbuilder/estimates.db" description:"SQLite file holding the last test run estimate per agent."`
}

// Editor holds the instruction editor limits and autosave timing.
type Editor struct {
	AutosaveDebounce time.Duration `envconfig:"AGENTBUILDER_AUTOSAVE_DEBOUNCE" default:"2s" description:"Idle time after the last edit before instructions are saved."`
	WarnLength       int           `envconfig:"AGENTBUILDER_INSTRUCTIONS_WARN_LENGTH" default:"8000" description:"Soft limit, editors warn above this length."`
	MaxLength        int           `envconfig:"AGENTBUILDER_INSTRUCTIONS_MAX_LENGTH" default:"10000" description:"Hard limit, longer instructions are never sent."`
}

func LoadCliConfig() (CliConfig, error) {
	_ = godotenv.Load()

	var cfg CliConfig
	err := envconfig.Process("", &cfg)
	if err != nil {
		return CliConfig{}, err
	}
	return cfg, nil
}
