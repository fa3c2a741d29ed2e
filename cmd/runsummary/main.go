package main

import (
	"os"

	"github.com/oceanbench/runsummary/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
