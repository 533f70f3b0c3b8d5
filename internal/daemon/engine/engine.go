// Package engine owns the daemon's core operations: scanning, launching and
// interpreter updates. The HTTP server and the in-process client both call
// into it.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/dock/command"
	"github.com/grovetools/dock/config"
	"github.com/grovetools/dock/internal/daemon/store"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/pkg/launcher"
	"github.com/grovetools/dock/util/pathutil"
	"github.com/sirupsen/logrus"
)

// Worker is a background task run for the lifetime of the engine.
type Worker interface {
	// Name returns the worker's name for logging.
	Name() string

	// Run blocks until ctx is canceled.
	Run(ctx context.Context) error
}

// Engine ties the resolver, the launcher and the store together.
type Engine struct {
	store    *store.Store
	launcher *launcher.Launcher
	workers  []Worker
	logger   *logrus.Entry

	mu       sync.RWMutex
	cfg      *config.Config
	resolver *apps.Resolver
}

// New creates an Engine from cfg. A nil executor runs real processes.
func New(cfg *config.Config, st *store.Store, exec command.Executor, logger *logrus.Entry) (*Engine, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if exec == nil {
		exec = &command.RealExecutor{}
	}

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    st,
		logger:   logger,
		cfg:      cfg,
		resolver: resolver,
	}
	e.launcher = launcher.New(
		command.NewSafeBuilderWithExecutor(exec),
		st,
		st,
		launcher.OptionsFromConfig(cfg.Launch),
		nil,
		logger.WithField("subsystem", "launcher"),
	)
	return e, nil
}

func newResolver(cfg *config.Config, logger *logrus.Entry) (*apps.Resolver, error) {
	return apps.NewResolver(apps.ResolverOptions{
		Ignore:           cfg.Scan.Ignore,
		FrameworkKeyword: cfg.Scan.FrameworkKeyword,
		Logger:           logger.WithField("subsystem", "resolver"),
	})
}

// ScanDirectory resolves root and makes the result the current index. On
// failure the previous index is kept.
func (e *Engine) ScanDirectory(root string) (apps.CategoryIndex, error) {
	index, err := e.currentResolver().Resolve(root)
	if err != nil {
		return nil, err
	}
	e.store.SetIndex(root, index)
	return index, nil
}

// Describe builds a descriptor for a single app folder using the current
// naming rules.
func (e *Engine) Describe(path string) apps.AppDescriptor {
	return e.currentResolver().Describe(path)
}

// DescribeRun builds the descriptor for a launch request. A non-empty name
// replaces the folder-derived one and its keyword decides the mode;
// framework, when set, overrides both.
func (e *Engine) DescribeRun(name, path string, framework *bool) apps.AppDescriptor {
	desc := e.Describe(path)
	if name != "" {
		desc.Name = name
		desc.Framework = e.IsFramework(name)
	}
	if framework != nil {
		desc.Framework = *framework
	}
	return desc
}

// IsFramework reports whether an app display name selects framework mode.
func (e *Engine) IsFramework(name string) bool {
	return e.currentResolver().IsFramework(name)
}

// Launch starts the app. It blocks for framework apps until readiness is
// known; see launcher.Launcher.Launch.
func (e *Engine) Launch(ctx context.Context, desc apps.AppDescriptor) launcher.Result {
	return e.launcher.Launch(ctx, desc)
}

// LastLaunched returns the last successfully launched app name or "None".
func (e *Engine) LastLaunched() string {
	return e.store.LastLaunched()
}

// SetInterpreter validates and stores a new interpreter path.
func (e *Engine) SetInterpreter(path string) error {
	if err := e.store.SetInterpreter(path, "api"); err != nil {
		return err
	}
	e.logger.WithField("interpreter", path).Info("Interpreter updated")
	return nil
}

// Config returns the configuration currently applied.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// ApplyConfig swaps in a reloaded configuration. The interpreter is only
// replaced when launch.interpreter itself changed, so a path set through
// the API survives unrelated edits.
func (e *Engine) ApplyConfig(cfg *config.Config) error {
	resolver, err := newResolver(cfg, e.logger)
	if err != nil {
		return err
	}

	e.mu.Lock()
	prev := e.cfg
	e.cfg = cfg
	e.resolver = resolver
	e.mu.Unlock()

	e.launcher.UpdateOptions(launcher.OptionsFromConfig(cfg.Launch))

	if prev == nil || prev.Launch.Interpreter != cfg.Launch.Interpreter {
		if err := e.store.SetInterpreter(cfg.Launch.Interpreter, "config"); err != nil {
			e.logger.WithError(err).WithField("interpreter", cfg.Launch.Interpreter).
				Warn("Ignoring configured interpreter")
		}
	}

	e.logger.WithField("sources", cfg.Sources).Info("Configuration applied")
	return nil
}

func (e *Engine) currentResolver() *apps.Resolver {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolver
}

// Register adds a background worker.
func (e *Engine) Register(w Worker) {
	e.workers = append(e.workers, w)
}

// Start scans scan.root when configured, then runs every worker and blocks
// until ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	if root := e.Config().Scan.Root; root != "" {
		if expanded, err := pathutil.Expand(root); err == nil {
			root = expanded
		}
		if _, err := e.ScanDirectory(root); err != nil {
			e.logger.WithError(err).WithField("root", root).Warn("Initial scan failed")
		}
	}

	var wg sync.WaitGroup
	for _, w := range e.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			e.logger.WithField("worker", w.Name()).Info("Starting worker")
			if err := w.Run(ctx); err != nil {
				e.logger.WithField("worker", w.Name()).WithError(err).Error("Worker failed")
			}
		}(w)
	}

	<-ctx.Done()
	wg.Wait()
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}
