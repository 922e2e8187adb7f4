package main

import (
	"os"

	"github.com/ashalaginvimeo/AS-test/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
