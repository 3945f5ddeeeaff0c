package agentbuilder

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
)

func getCommandLineExecutable() string {
	return "agentbuilder"
}

func FatalErrorHandler(cmd *cobra.Command, msg string, code int) {
	if len(msg) > 0 {
		// add newline if needed
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		cmd.PrintErr(msg)
	}
	os.Exit(code)
}

// generateEnvHelpText lists the environment variables of a config struct
// with their defaults and descriptions.
func generateEnvHelpText(cfg interface{}, prefix string) string {
	var helpTextBuilder strings.Builder

	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem() // Get the type that the pointer refers to
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldType := field.Type
		if fieldType.Kind() == reflect.Struct {
			helpTextBuilder.WriteString(fmt.Sprintf("\n%s - %s\n\n", prefix, field.Name))
			helpTextBuilder.WriteString(generateEnvHelpText(reflect.New(fieldType).Interface(), prefix+" "))
			continue
		}

		envVar := field.Tag.Get("envconfig")
		if envVar == "" {
			continue
		}
		description := field.Tag.Get("description")
		defaultValue := field.Tag.Get("default")
		line := fmt.Sprintf("%s  %s", prefix, envVar)
		if defaultValue != "" {
			line += fmt.Sprintf(" (default: %s)", defaultValue)
		}
		if description != "" {
			line += " - " + description
		}
		helpTextBuilder.WriteString(line + "\n")
	}

	return helpTextBuilder.String()
}
