// =============================================================================
// Ledger Cleaner - Main Entry Point
// =============================================================================
//
// USAGE:
//   cleaner process       - Clean every ledger export in the input directory
//   cleaner serve         - Accept uploads over HTTP
//   cleaner watch         - Clean exports as they arrive
//   cleaner validate      - Validate configuration files without processing
//   cleaner version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Cleaning pipeline, codecs, server, watcher
//   - pkg/           : Shared file utilities
//   - profiles/      : Per-source YAML profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ledger-cleaner/cmd"
)

func main() {
	cmd.Execute()
}
