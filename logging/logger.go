package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger returns the logger for a component, creating it on first use.
// Settings come from the `logging` section of dock.yml, overridden by
// DOCK_LOG_LEVEL and DOCK_LOG_CALLER.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := newLogger(component, logCfg, time.Now())
	loggers[component] = entry
	return entry
}

func newLogger(component string, logCfg Config, now time.Time) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("DOCK_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("DOCK_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	switch {
	case logCfg.Format.Preset == "json", logCfg.File.Enabled && logCfg.File.Format == "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case logCfg.Format.Preset == "simple":
		logger.SetFormatter(&TextFormatter{
			Config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			Plain:  !interactive,
		})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format, Plain: !interactive})
	}

	var writers []io.Writer

	logFilePath := LogFilePath(component, now)
	if logCfg.File.Enabled && logCfg.File.Path != "" {
		logFilePath = expandPath(logCfg.File.Path)
	}
	if file, err := openLogFile(logFilePath); err == nil {
		writers = append(writers, file)
	} else if logCfg.File.Enabled {
		// Only an explicitly configured sink is worth a warning.
		logger.Warnf("Failed to open log file %s: %v", logFilePath, err)
	}

	toStderr := false
	switch logCfg.Format.StructuredToStderr {
	case "always":
		toStderr = true
	case "never":
	default:
		isDebug := os.Getenv("DOCK_DEBUG") == "1" || logger.GetLevel() >= logrus.DebugLevel
		toStderr = isDebug || !interactive
	}
	if toStderr {
		writers = append(writers, StderrOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

// LogFilePath is the default daily log file for a component:
// <state>/logs/<component>-<YYYY-MM-DD>.log.
func LogFilePath(component string, day time.Time) string {
	return filepath.Join(paths.LogDir(), fmt.Sprintf("%s-%s.log", component, day.Format("2006-01-02")))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
