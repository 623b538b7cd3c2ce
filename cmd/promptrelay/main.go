package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/promptrelay/relay/internal/cmd"
	"github.com/promptrelay/relay/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd.Version = Version
	cmd.BuildTime = BuildTime

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Set OPENAI_API_KEY in the environment, a .env file, or upstream.api_key in config.yaml.")
			os.Exit(2)
		}
		os.Exit(1)
	}
}
