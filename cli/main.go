package main

import (
	"os"

	"github.com/chaintrace-systems/chaintrace-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
