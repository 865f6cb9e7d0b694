package main

import (
	"os"

	"github.com/memfleet/agent-coord/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
