package system

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	AgentPrefix   = "agt_"
	ContactPrefix = "con_"
	DealPrefix    = "deal_"
	TestRunPrefix = "testrun_"
)

func GenerateUUID() string {
	return uuid.New().String()
}

func newID() string {
	return strings.ToLower(ulid.Make().String())
}

func GenerateAgentID() string {
	return fmt.Sprintf("%s%s", AgentPrefix, newID())
}

func GenerateContactID() string {
	return fmt.Sprintf("%s%s", ContactPrefix, newID())
}

func GenerateDealID() string {
	return fmt.Sprintf("%s%s", DealPrefix, newID())
}

func GenerateTestRunID() string {
	return fmt.Sprintf("%s%s", TestRunPrefix, newID())
}
