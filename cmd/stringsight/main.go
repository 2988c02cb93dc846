package main

import (
	"os"

	"github.com/nea-energy/stringsight/backend/cmd/stringsight/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
