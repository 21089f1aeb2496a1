// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for gitswitch.
//
// Usage:
//
//	go run . [flags]
//	./gitswitch [flags]
//
// This launches the gitswitch CLI. See --help for options.
package main

import (
	"log"
	"os"

	"github.com/toeirei/gitswitch/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the gitswitch CLI.
func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		log.Printf("gitswitch CLI error: %v", err)
		os.Exit(1)
	}
}
