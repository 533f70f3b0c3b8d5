// Package launcher starts app processes and, for framework apps, waits for
// the address they announce on stdout.
package launcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/dock/command"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/errors"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/pkg/process"
	"github.com/sirupsen/logrus"
)

// InterpreterSource supplies the interpreter path at launch time.
type InterpreterSource interface {
	Interpreter() string
}

// LaunchRecorder is told about every successful launch.
type LaunchRecorder interface {
	RecordLaunch(name string)
}

// Options holds the launch settings that come from configuration.
type Options struct {
	EntryPoint       string
	FrameworkModule  string
	FrameworkName    string
	FrameworkArgs    []string
	ReadinessTimeout time.Duration
}

// OptionsFromConfig maps the `launch` section onto Options.
func OptionsFromConfig(cfg config.LaunchConfig) Options {
	return Options{
		EntryPoint:       cfg.EntryPoint,
		FrameworkModule:  cfg.FrameworkModule,
		FrameworkName:    cfg.FrameworkName,
		FrameworkArgs:    append([]string(nil), cfg.FrameworkArgs...),
		ReadinessTimeout: cfg.Timeout(),
	}
}

// Launcher spawns app processes. It never signals or kills what it starts;
// it only reaps children once they exit.
type Launcher struct {
	builder     *command.SafeBuilder
	interpreter InterpreterSource
	recorder    LaunchRecorder
	logger      *logrus.Entry

	mu             sync.RWMutex
	opts           Options
	detector       Detector
	customDetector bool
}

// New creates a Launcher. A nil detector selects LocalURLDetector, which is
// rebuilt whenever the options change.
func New(builder *command.SafeBuilder, interpreter InterpreterSource, recorder LaunchRecorder, opts Options, detector Detector, logger *logrus.Entry) *Launcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	l := &Launcher{
		builder:        builder,
		interpreter:    interpreter,
		recorder:       recorder,
		logger:         logger,
		detector:       detector,
		customDetector: detector != nil,
	}
	l.UpdateOptions(opts)
	return l
}

// UpdateOptions replaces the launch settings, e.g. after a config reload.
// Launches already in flight keep the settings they started with.
func (l *Launcher) UpdateOptions(opts Options) {
	if opts.EntryPoint == "" {
		opts.EntryPoint = config.DefaultEntryPoint
	}
	if opts.FrameworkModule == "" {
		opts.FrameworkModule = config.DefaultFrameworkModule
	}
	if opts.FrameworkName == "" {
		opts.FrameworkName = config.DefaultFrameworkName
	}
	if opts.FrameworkArgs == nil {
		opts.FrameworkArgs = append([]string(nil), config.DefaultFrameworkArgs...)
	}
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = config.DefaultReadinessTimeout
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.opts = opts
	if !l.customDetector {
		l.detector = &LocalURLDetector{Framework: opts.FrameworkName, Logger: l.logger}
	}
}

// Options returns the settings currently in effect.
func (l *Launcher) Options() Options {
	opts, _ := l.snapshot()
	return opts
}

func (l *Launcher) snapshot() (Options, Detector) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.opts, l.detector
}

// Launch starts the app described by desc. The entry point must exist
// directly inside desc.Path; otherwise nothing is spawned. On success the
// recorder is told the app name. In framework mode Launch blocks until the
// address is found, the stream closes, the readiness timeout expires or ctx
// is canceled. A framework child that fails readiness is left running.
func (l *Launcher) Launch(ctx context.Context, desc apps.AppDescriptor) Result {
	opts, detector := l.snapshot()

	dir, err := filepath.Abs(desc.Path)
	if err != nil {
		return Failed(desc.Name, 0, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid app path"))
	}

	entry := filepath.Join(dir, opts.EntryPoint)
	if info, err := os.Stat(entry); err != nil || info.IsDir() {
		return Failed(desc.Name, 0, errors.EntryPointNotFound(desc.Path, opts.EntryPoint))
	}

	spec := command.Spec{
		Interpreter: l.interpreter.Interpreter(),
		Dir:         dir,
		EntryPoint:  opts.EntryPoint,
	}
	if desc.Framework {
		spec.Module = opts.FrameworkModule
		spec.Args = opts.FrameworkArgs
	}

	log := l.logger.WithFields(logrus.Fields{
		"app":       desc.Name,
		"path":      dir,
		"framework": desc.Framework,
	})
	log.WithField("command", spec.String()).Info("Launching app")

	var result Result
	if desc.Framework {
		result = l.launchFramework(ctx, desc.Name, spec, opts, detector, log)
	} else {
		result = l.launchPlain(desc.Name, spec, log)
	}

	if result.OK() {
		l.recorder.RecordLaunch(desc.Name)
		log.WithFields(logrus.Fields{"pid": result.PID, "address": result.Address}).Info("App launched")
	} else {
		log.WithError(result.Err).WithField("pid", result.PID).Warn("App launch failed")
	}
	return result
}

// launchPlain spawns the child with stdio on the null device and returns
// without waiting for any output.
func (l *Launcher) launchPlain(name string, spec command.Spec, log *logrus.Entry) Result {
	cmd, err := l.builder.Build(spec)
	if err != nil {
		return Failed(name, 0, errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error()))
	}
	process.Detach(cmd)

	if err := cmd.Start(); err != nil {
		return Failed(name, 0, errors.SpawnFailed(spec.Interpreter, err))
	}

	pid := cmd.Process.Pid
	go reap(cmd.Wait, nil, log.WithField("pid", pid))
	return Started(name, pid)
}

type detection struct {
	address string
	err     error
}

func (l *Launcher) launchFramework(ctx context.Context, name string, spec command.Spec, opts Options, detector Detector, log *logrus.Entry) Result {
	cmd, err := l.builder.Build(spec)
	if err != nil {
		return Failed(name, 0, errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error()))
	}
	process.Detach(cmd)

	// An os.Pipe instead of StdoutPipe lets the reader outlive cmd.Wait.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return Failed(name, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to create output pipe"))
	}
	stderr := log.WriterLevel(logrus.DebugLevel)

	cmd.Stdout = stdoutW
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderr.Close()
		return Failed(name, 0, errors.SpawnFailed(spec.Interpreter, err))
	}
	// The child holds its own copy of the write end.
	stdoutW.Close()

	pid := cmd.Process.Pid
	go reap(cmd.Wait, stderr, log.WithField("pid", pid))

	results := make(chan detection, 1)
	go func() {
		address, err := detector.DetectAddress(stdoutR)
		results <- detection{address: address, err: err}
		// Keep the pipe drained so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, stdoutR)
		stdoutR.Close()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, opts.ReadinessTimeout)
	defer cancel()

	select {
	case d := <-results:
		if d.err != nil {
			return Failed(name, pid, d.err)
		}
		return StartedWithAddress(name, d.address, pid)
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return Failed(name, pid, errors.Wrap(ctx.Err(), errors.ErrCodeReadinessTimeout, "readiness wait canceled").
				WithDetail("app", name))
		}
		return Failed(name, pid, errors.ReadinessTimeout(name, opts.ReadinessTimeout))
	}
}

// reap waits for the child so it never lingers as a zombie.
func reap(wait func() error, stderr io.Closer, log *logrus.Entry) {
	err := wait()
	if stderr != nil {
		stderr.Close()
	}
	if err != nil {
		log.WithError(err).Debug("App process exited")
		return
	}
	log.Debug("App process exited")
}
