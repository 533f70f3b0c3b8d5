package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func resetLoggers() {
	loggersMu.Lock()
	loggers = make(map[string]*logrus.Entry)
	loggersMu.Unlock()
}

func TestNewLogger(t *testing.T) {
	t.Setenv("DOCK_HOME", t.TempDir())
	defer resetLoggers()

	logger := NewLogger("test-component")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
	if logger.Data["component"] != "test-component" {
		t.Errorf("Expected component to be 'test-component', got %v", logger.Data["component"])
	}
	if again := NewLogger("test-component"); again != logger {
		t.Error("Expected the same entry for a repeated component")
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "app launched",
				Data: logrus.Fields{
					"component": "launcher",
					"app":       "streamlit-demo",
					"pid":       4242,
				},
			},
			want: []string{"[INFO]", "[launcher]", "app launched", "app=streamlit-demo pid=4242"},
		},
		{
			name:   "simple format",
			config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "skipping folder",
				Data:    logrus.Fields{"component": "resolver"},
			},
			want:    []string{"[WARN]", "skipping folder"},
			notWant: []string{"[resolver]", "2024-"},
		},
		{
			name:   "caller information",
			config: FormatConfig{},
			entry: func() *logrus.Entry {
				logger := logrus.New()
				logger.SetReportCaller(true)
				return &logrus.Entry{
					Logger:  logger,
					Level:   logrus.InfoLevel,
					Message: "with caller",
					Data:    logrus.Fields{"component": "server"},
					Caller: &runtime.Frame{
						File:     "/src/dock/server.go",
						Line:     42,
						Function: "github.com/grovetools/dock/internal/daemon/server.handleRunApp",
					},
				}
			}(),
			want: []string{"[server.go:42 server.handleRunApp]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config, Plain: true}
			tt.entry.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

			output, err := formatter.Format(tt.entry)
			if err != nil {
				t.Fatalf("Format returned error: %v", err)
			}
			outputStr := string(output)

			for _, want := range tt.want {
				if !strings.Contains(outputStr, want) {
					t.Errorf("Expected output to contain '%s', got: %s", want, outputStr)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(outputStr, notWant) {
					t.Errorf("Expected output NOT to contain '%s', got: %s", notWant, outputStr)
				}
			}
		})
	}
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("DOCK_HOME", t.TempDir())
	t.Setenv("DOCK_LOG_LEVEL", "debug")
	t.Setenv("DOCK_LOG_CALLER", "true")

	logger := newLogger("env-test", Config{Level: "error"}, time.Now())

	if logger.Logger.Level != logrus.DebugLevel {
		t.Errorf("Expected debug level from env var, got %v", logger.Logger.Level)
	}
	if !logger.Logger.ReportCaller {
		t.Error("Expected caller reporting to be enabled from env var")
	}
}

func TestConfiguredLevelAndPreset(t *testing.T) {
	t.Setenv("DOCK_HOME", t.TempDir())
	t.Setenv("DOCK_LOG_LEVEL", "")

	logger := newLogger("cfg-test", Config{
		Level:  "warn",
		Format: FormatConfig{Preset: "json", StructuredToStderr: "never"},
	}, time.Now())

	if logger.Logger.Level != logrus.WarnLevel {
		t.Errorf("Expected warn level from config, got %v", logger.Logger.Level)
	}
	if _, ok := logger.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", logger.Logger.Formatter)
	}
}

func TestDefaultFileSink(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DOCK_HOME", home)
	t.Setenv("DOCK_LOG_LEVEL", "")

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	logger := newLogger("sink-test", Config{Format: FormatConfig{StructuredToStderr: "never"}}, day)
	logger.Info("written to file")

	path := filepath.Join(home, "state", "logs", "sink-test-2024-05-06.log")
	if got := LogFilePath("sink-test", day); got != path {
		t.Fatalf("LogFilePath = %s, want %s", got, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected log file to contain message, got: %s", data)
	}
}

func TestStderrOutputSwap(t *testing.T) {
	var buf bytes.Buffer
	prev := SetStderrOutput(&buf)
	defer SetStderrOutput(prev)

	if _, err := StderrOutput().Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello" {
		t.Errorf("Expected swapped writer to receive output, got %q", buf.String())
	}
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("Launched demo")
	p.Field("address", "http://localhost:8501")
	p.Heading("Streamlit")
	p.Item("dashboard", "/apps/streamlit-dashboard")
	p.ErrorPretty("Launch failed", os.ErrNotExist)

	out := buf.String()
	for _, want := range []string{"Launched demo", "address:", "http://localhost:8501", "Streamlit", "dashboard", "Launch failed", "file does not exist"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, out)
		}
	}
}
