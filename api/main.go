package main

import (
	"github.com/joho/godotenv"

	"github.com/helixml/agentbuilder/api/cmd/agentbuilder"
)

func main() {
	_ = godotenv.Load()
	agentbuilder.Execute()
}
