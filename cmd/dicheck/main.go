// Command dicheck validates dicore manifests and prints their dependency graphs.
//
// Usage:
//
//	dicheck validate app.yaml
//	dicheck graph app.yaml --format dot | dot -Tsvg > graph.svg
//	dicheck resolve app.yaml Service
//
// Defaults are read from the environment and from a .env file in the working
// directory: DICHECK_POLICY, DICHECK_CONFIG, DICHECK_FORMAT.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
