package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched in order in every candidate directory.
var configNames = []string{
	"dock.yml",
	"dock.yaml",
	".dock.yml",
	".dock.yaml",
	"dock.toml",
}

// Format is the on-disk encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the decoder from the file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, validates and defaults a single configuration file.
func Load(path string) (*Config, error) {
	cfg, err := loadRaw(path)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads configuration starting from the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger merges, in order:
// 1. Global config ($XDG_CONFIG_HOME/dock/dock.yml) - base layer
// 2. Project config (dock.yml found from startDir upward) - overrides global
//
// Neither file is required; with no files at all the defaults are returned.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	var finalConfig *Config

	if globalPath := findInDir(paths.ConfigDir()); globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		globalConfig, err := loadRaw(globalPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
		} else {
			finalConfig = globalConfig
		}
	}

	projectPath, err := FindConfigFile(startDir)
	if err == nil && (finalConfig == nil || !containsPath(finalConfig.Sources, projectPath)) {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		projectConfig, err := loadRaw(projectPath)
		if err != nil {
			return nil, err
		}
		if finalConfig == nil {
			finalConfig = projectConfig
		} else {
			logger.Debug("Merging project configuration over global configuration")
			finalConfig = mergeConfigs(finalConfig, projectConfig)
		}
	}

	if finalConfig == nil {
		logger.Debug("No configuration files found, using defaults")
		finalConfig = &Config{}
	}

	cfg, err := finalize(finalConfig)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}

	return cfg, nil
}

// LoadFromBytes parses configuration in the given format, validating it
// against the JSON Schema and the semantic rules, and applies defaults.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	cfg, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := decode(data, FormatFor(path))
	if err != nil {
		if dockErr, ok := err.(*errors.DockError); ok {
			return nil, dockErr.WithDetail("path", path)
		}
		return nil, err
	}
	cfg.Sources = []string{path}
	return cfg, nil
}

// decode expands ${VAR} references, validates the raw document against the
// schema and decodes it into a Config without applying defaults.
func decode(data []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var raw map[string]interface{}
	var cfg Config

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		cfg.Extensions = extensionsFrom(raw)
	default:
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
		if len(bytes.TrimSpace(expanded)) > 0 {
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
			}
		}
	}

	if raw != nil {
		validator, err := NewSchemaValidator()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
		}
		if err := validator.Validate(raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
		}
	}

	return &cfg, nil
}

// extensionsFrom returns every top-level key of raw that Config does not own.
func extensionsFrom(raw map[string]interface{}) map[string]interface{} {
	ext := make(map[string]interface{})
	for key, value := range raw {
		switch key {
		case "version", "server", "launch", "scan":
			continue
		}
		ext[key] = value
	}
	if len(ext) == 0 {
		return nil
	}
	return ext
}

// FindConfigFile searches for dock configuration files from startDir up to
// the filesystem root, then in the global config directory.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		if path := findInDir(dir); path != "" {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if path := findInDir(paths.ConfigDir()); path != "" {
		return path, nil
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func findInDir(dir string) string {
	if dir == "" {
		return ""
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func containsPath(list []string, path string) bool {
	for _, p := range list {
		if p == path {
			return true
		}
	}
	return false
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// IsConfigFile reports whether path has one of the recognized config file
// names.
func IsConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range configNames {
		if base == name {
			return true
		}
	}
	return false
}
