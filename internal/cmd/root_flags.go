package cmd

import (
	"github.com/spf13/pflag"

	"github.com/ma3u/mcp-server-dust/internal/config"
)

// initRootFlags binds runtime overrides onto the loaded configuration: the
// flag defaults are whatever the settings file and environment resolved to.
func initRootFlags(flags *pflag.FlagSet, cfg *config.Config) {
	flags.StringVarP(&cfg.Transport, "transport", "t", cfg.Transport, "MCP transport: stdio, http, or sse")
	flags.StringVar(&cfg.Host, "host", cfg.Host, "Listen host (http and sse transports)")
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Listen port (http and sse transports)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, or error")
	flags.SortFlags = false
}
