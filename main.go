// ABOUTME: Entry point for the apikeys CLI
// ABOUTME: Terminal client for logging in and managing API keys

package main

import (
	"fmt"
	"os"

	"github.com/sumitbondd/api-key-manager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
