package logging

// Config is the `logging` section of dock.yml.
type Config struct {
	// Level is the minimum level written ("debug", "info", "warn", "error").
	// DOCK_LOG_LEVEL takes precedence.
	Level string `yaml:"level"`

	// ReportCaller adds file, line and function to every entry.
	// DOCK_LOG_CALLER=true has the same effect.
	ReportCaller bool `yaml:"report_caller"`

	File   FileSinkConfig `yaml:"file"`
	Format FormatConfig   `yaml:"format"`
}

// FileSinkConfig configures the file sink. When disabled, logs still go to
// the per-component daily file under the state directory.
type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Format  string `yaml:"format,omitempty"` // "text" (default) or "json"
}

// FormatConfig controls how entries are rendered.
type FormatConfig struct {
	// Preset is "default" (rich text), "simple" (minimal text) or "json".
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// StructuredToStderr is "auto" (default), "always" or "never".
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
