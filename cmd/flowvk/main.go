package main

import (
	"os"

	"github.com/Manwe314/FlowVk/cmd/flowvk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
