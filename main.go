package main

import (
	"os"

	"github.com/compozy/storymapper/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
