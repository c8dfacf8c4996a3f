// Package main provides the dust-mcp server binary.
package main

import (
	"github.com/ma3u/mcp-server-dust/internal/cmd"
	"github.com/ma3u/mcp-server-dust/internal/config"
)

// Build vars.
var (
	//nolint: gochecknoglobals
	Version = ""
	//nolint: gochecknoglobals
	CommitSHA = ""
)

func main() {
	cfg, cfgErr := config.Ensure()
	cmd.Execute(cmd.BuildInfo{Version: Version, CommitSHA: CommitSHA}, cfg, cfgErr)
}
