package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/dock/errors"
	"github.com/moby/patternmatcher"
)

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid server.listen '%s'", c.Server.Listen)).
			WithDetail("field", "server.listen")
	}

	if err := validateDuration("server.shutdown_timeout", c.Server.ShutdownTimeout); err != nil {
		return err
	}

	if err := validateLaunch(&c.Launch); err != nil {
		return err
	}

	if len(c.Scan.Ignore) > 0 {
		if _, err := patternmatcher.New(c.Scan.Ignore); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid scan.ignore pattern").
				WithDetail("field", "scan.ignore")
		}
	}

	return nil
}

func validateLaunch(l *LaunchConfig) error {
	if strings.TrimSpace(l.Interpreter) == "" {
		return errors.New(errors.ErrCodeConfigValidation, "launch.interpreter cannot be empty").
			WithDetail("field", "launch.interpreter")
	}

	// The entry point must sit directly inside the app folder.
	if l.EntryPoint != filepath.Base(l.EntryPoint) || l.EntryPoint == "." || l.EntryPoint == ".." {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("launch.entry_point must be a bare file name, got '%s'", l.EntryPoint)).
			WithDetail("field", "launch.entry_point")
	}

	if strings.ContainsAny(l.FrameworkModule, " \t/") {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("launch.framework_module must be a module name, got '%s'", l.FrameworkModule)).
			WithDetail("field", "launch.framework_module")
	}

	return validateDuration("launch.readiness_timeout", l.ReadinessTimeout)
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be a duration like '30s'", field)).
			WithDetail("field", field)
	}
	if d <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be positive", field)).
			WithDetail("field", field)
	}
	return nil
}
