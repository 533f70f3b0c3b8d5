package command

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	frameworkFlag     = regexp.MustCompile(`^[A-Za-z0-9_.:/=-]+$`)
)

// Spec describes one app process to start.
type Spec struct {
	Interpreter string
	Dir         string
	EntryPoint  string

	// Module, when set, runs `<interpreter> -m <module> run <entry point> <Args...>`
	// instead of `<interpreter> <entry point>`.
	Module string
	Args   []string
}

// Argv returns the argument list passed after the interpreter.
func (s Spec) Argv() []string {
	if s.Module == "" {
		return []string{s.EntryPoint}
	}
	argv := []string{"-m", s.Module, "run", s.EntryPoint}
	return append(argv, s.Args...)
}

// String renders the command line for logs.
func (s Spec) String() string {
	return strings.Join(append([]string{s.Interpreter}, s.Argv()...), " ")
}

// SafeBuilder validates launch parameters before turning them into commands.
// Arguments are passed to exec directly, never through a shell.
type SafeBuilder struct {
	validators map[string]func(string) error
	executor   Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		validators: makeDefaultValidators(),
		executor:   exec,
	}
}

func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"interpreter":  validateInterpreter,
		"workDir":      validateWorkDir,
		"entryPoint":   validateEntryPoint,
		"module":       validateModule,
		"frameworkArg": validateFrameworkArg,
	}
}

func validateInterpreter(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("interpreter cannot be empty")
	}
	if strings.ContainsAny(path, "\x00\n") {
		return fmt.Errorf("interpreter contains invalid characters")
	}
	return nil
}

func validateWorkDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("working directory cannot be empty")
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("working directory must be absolute: %s", dir)
	}
	return nil
}

// validateEntryPoint only accepts a file directly inside the working directory.
func validateEntryPoint(name string) error {
	if name == "" {
		return fmt.Errorf("entry point cannot be empty")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("entry point must be a bare file name: %s", name)
	}
	return nil
}

func validateModule(name string) error {
	if !moduleNamePattern.MatchString(name) {
		return fmt.Errorf("invalid module name: %s", name)
	}
	return nil
}

func validateFrameworkArg(arg string) error {
	if !frameworkFlag.MatchString(arg) {
		return fmt.Errorf("invalid framework argument: %q", arg)
	}
	return nil
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Build validates spec and returns an unstarted command whose working
// directory is spec.Dir. The command carries no context: a started app is
// never killed on behalf of the request that launched it.
func (sb *SafeBuilder) Build(spec Spec) (*exec.Cmd, error) {
	checks := []struct{ argType, value string }{
		{"interpreter", spec.Interpreter},
		{"workDir", spec.Dir},
		{"entryPoint", spec.EntryPoint},
	}
	if spec.Module != "" {
		checks = append(checks, struct{ argType, value string }{"module", spec.Module})
		for _, arg := range spec.Args {
			checks = append(checks, struct{ argType, value string }{"frameworkArg", arg})
		}
	}

	for _, c := range checks {
		if err := sb.Validate(c.argType, c.value); err != nil {
			return nil, err
		}
	}

	cmd := sb.executor.Command(spec.Interpreter, spec.Argv()...) //nolint:gosec // validated above
	cmd.Dir = spec.Dir
	return cmd, nil
}
