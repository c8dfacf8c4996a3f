package config

import (
	"errors"
	"os"
	"path/filepath"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/ma3u/mcp-server-dust/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// apiKeyPlaceholder is the value the sample configuration ships with. It is
// rejected by Validate so a copied template never reaches the network.
const apiKeyPlaceholder = "store SECRETS in .env file"

// Transport names accepted by MCP_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	// MCP server.
	Name      string        `yaml:"name" env:"MCP_NAME"`
	Host      string        `yaml:"host" env:"MCP_HOST"`
	Port      int           `yaml:"port" env:"MCP_PORT"`
	Timeout   time.Duration `yaml:"timeout" env:"MCP_TIMEOUT"`
	Transport string        `yaml:"transport" env:"MCP_TRANSPORT"`

	// Dust platform.
	APIKey        string `yaml:"api-key" env:"DUST_API_KEY"`
	WorkspaceID   string `yaml:"workspace-id" env:"DUST_WORKSPACE_ID"`
	WorkspaceName string `yaml:"workspace-name" env:"DUST_WORKSPACE_NAME"`
	AgentID       string `yaml:"agent-id" env:"DUST_AGENT_ID"`
	AgentName     string `yaml:"agent-name" env:"DUST_AGENT_NAME"`
	Domain        string `yaml:"domain" env:"DUST_DOMAIN"`
	Timezone      string `yaml:"timezone" env:"DUST_TIMEZONE"`
	Username      string `yaml:"username" env:"DUST_USERNAME"`
	Fullname      string `yaml:"fullname" env:"DUST_FULLNAME"`

	// Polling.
	MaxPollAttempts int           `yaml:"max-poll-attempts" env:"DUST_MAX_POLL_ATTEMPTS"`
	PollInterval    time.Duration `yaml:"poll-interval" env:"DUST_POLL_INTERVAL"`

	LogLevel string `yaml:"log-level" env:"LOG_LEVEL"`
}

// Runtime holds CLI/runtime-only options that should not be loaded from the
// settings file.
type Runtime struct {
	SettingsPath string
}

// Config is the application configuration (settings + runtime-only options).
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// Ensure loads settings from disk and environment and applies defaults.
//
// It also creates the default settings file if it does not exist.
func Ensure() (Config, error) {
	var c Config
	home, err := os.UserHomeDir()
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}
	return EnsureAt(filepath.Join(home, ".config", "dust-mcp", "dust.yml"))
}

// EnsureAt is Ensure with an explicit settings file path.
func EnsureAt(sp string) (Config, error) {
	var c Config
	c.SettingsPath = sp

	if dirErr := os.MkdirAll(filepath.Dir(sp), 0o700); dirErr != nil {
		return c, errs.Error{Err: dirErr, Reason: "Could not create config directory."}
	}

	if fileErr := WriteConfigFile(sp); fileErr != nil {
		return c, fileErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := env.Parse(&c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings file."}
	}

	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Config) {
	def := Default()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Transport == "" {
		c.Transport = def.Transport
	}
	if c.Domain == "" {
		c.Domain = def.Domain
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.AgentName == "" {
		c.AgentName = def.AgentName
	}
	if c.Username == "" {
		c.Username = def.Username
	}
	if c.Fullname == "" {
		c.Fullname = def.Fullname
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = def.MaxPollAttempts
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks that the credentials required for any platform call are
// present. It must pass before a client is constructed; a failure here means
// no network request is ever attempted.
func (c *Config) Validate() error {
	if c.APIKey == "" || c.APIKey == apiKeyPlaceholder {
		return errs.Error{Reason: "Missing DUST_API_KEY environment variable."}
	}
	if c.WorkspaceID == "" {
		return errs.Error{Reason: "Missing DUST_WORKSPACE_ID environment variable."}
	}
	if c.AgentID == "" {
		return errs.Error{Reason: "Missing DUST_AGENT_ID environment variable."}
	}
	switch c.Transport {
	case TransportStdio, TransportHTTP, TransportSSE:
	default:
		return errs.Wrapf(nil, "Unknown MCP_TRANSPORT %q (valid: stdio, http, sse).", c.Transport)
	}
	return nil
}

// Headers builds the standard header set for platform requests.
func (c *Config) Headers(includeContentType bool) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Accept":        "application/json",
	}
	if includeContentType {
		h["Content-Type"] = "application/json"
	}
	return h
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			Name:            "Dust MCP Server",
			Host:            "127.0.0.1",
			Port:            5001,
			Timeout:         30 * time.Second,
			Transport:       TransportStdio,
			Domain:          "https://dust.tt",
			Timezone:        "Europe/Berlin",
			AgentName:       "SystemsThinking",
			Username:        "systems_analyst",
			Fullname:        "AI Research Team",
			MaxPollAttempts: 30,
			PollInterval:    time.Second,
			LogLevel:        "info",
		},
	}
}
