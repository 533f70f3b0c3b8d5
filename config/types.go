package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultListen           = "127.0.0.1:8000"
	DefaultInterpreter      = "/usr/bin/python3"
	DefaultEntryPoint       = "main.py"
	DefaultFrameworkModule  = "streamlit"
	DefaultFrameworkName    = "Streamlit"
	DefaultReadinessTimeout = 30 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
)

// DefaultFrameworkArgs are appended after `run <entry point>` in framework mode.
var DefaultFrameworkArgs = []string{"--server.headless", "true"}

// Config is the root of dock.yml / dock.toml.
type Config struct {
	Version string       `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Server  ServerConfig `yaml:"server,omitempty" toml:"server,omitempty" jsonschema:"description=Daemon HTTP listener settings"`
	Launch  LaunchConfig `yaml:"launch,omitempty" toml:"launch,omitempty" jsonschema:"description=How apps are started and how readiness is detected"`
	Scan    ScanConfig   `yaml:"scan,omitempty" toml:"scan,omitempty" jsonschema:"description=App discovery settings"`

	// Extensions holds any top-level section dock itself does not own,
	// e.g. `logging`. Decode with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`

	// Sources lists the files this configuration was merged from, in order.
	Sources []string `yaml:"-" toml:"-" json:"-" jsonschema:"-"`
}

// ServerConfig configures the daemon listener.
type ServerConfig struct {
	Listen          string `yaml:"listen,omitempty" toml:"listen,omitempty" jsonschema:"description=host:port the daemon listens on"`
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty" toml:"shutdown_timeout,omitempty" jsonschema:"description=Grace period for in-flight requests on shutdown (Go duration)"`
}

// LaunchConfig configures the process launcher.
type LaunchConfig struct {
	Interpreter      string   `yaml:"interpreter,omitempty" toml:"interpreter,omitempty" jsonschema:"description=Interpreter used to run app entry points"`
	EntryPoint       string   `yaml:"entry_point,omitempty" toml:"entry_point,omitempty" jsonschema:"description=Entry point file expected directly inside each app folder"`
	FrameworkModule  string   `yaml:"framework_module,omitempty" toml:"framework_module,omitempty" jsonschema:"description=Module run with -m in framework mode"`
	FrameworkName    string   `yaml:"framework_name,omitempty" toml:"framework_name,omitempty" jsonschema:"description=Display name of the framework used in messages"`
	FrameworkArgs    []string `yaml:"framework_args,omitempty" toml:"framework_args,omitempty" jsonschema:"description=Extra arguments appended in framework mode"`
	ReadinessTimeout string   `yaml:"readiness_timeout,omitempty" toml:"readiness_timeout,omitempty" jsonschema:"description=Upper bound on waiting for the framework address (Go duration)"`
}

// ScanConfig configures app discovery.
type ScanConfig struct {
	Root             string   `yaml:"root,omitempty" toml:"root,omitempty" jsonschema:"description=Directory scanned when the daemon starts"`
	Ignore           []string `yaml:"ignore,omitempty" toml:"ignore,omitempty" jsonschema:"description=Folder name patterns skipped during a scan (dockerignore syntax)"`
	FrameworkKeyword string   `yaml:"framework_keyword,omitempty" toml:"framework_keyword,omitempty" jsonschema:"description=Apps whose name contains this word launch in framework mode"`
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout.String()
	}
	if c.Launch.Interpreter == "" {
		c.Launch.Interpreter = DefaultInterpreter
	}
	if c.Launch.EntryPoint == "" {
		c.Launch.EntryPoint = DefaultEntryPoint
	}
	if c.Launch.FrameworkModule == "" {
		c.Launch.FrameworkModule = DefaultFrameworkModule
	}
	if c.Launch.FrameworkName == "" {
		c.Launch.FrameworkName = DefaultFrameworkName
	}
	if c.Launch.FrameworkArgs == nil {
		c.Launch.FrameworkArgs = append([]string(nil), DefaultFrameworkArgs...)
	}
	if c.Launch.ReadinessTimeout == "" {
		c.Launch.ReadinessTimeout = DefaultReadinessTimeout.String()
	}
	if c.Scan.FrameworkKeyword == "" {
		c.Scan.FrameworkKeyword = DefaultFrameworkModule
	}
}

// Timeout returns the parsed readiness timeout, falling back to the default
// when the value is unset or malformed. Validate rejects malformed values.
func (l LaunchConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(l.ReadinessTimeout)
	if err != nil || d <= 0 {
		return DefaultReadinessTimeout
	}
	return d
}

// ShutdownGrace returns the parsed shutdown timeout.
func (s ServerConfig) ShutdownGrace() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil || d <= 0 {
		return DefaultShutdownTimeout
	}
	return d
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded dock.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// A missing section leaves the target zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
