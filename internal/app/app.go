// Package app implements the application layer for proof.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/proof/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/proof/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/proof/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/proof/internal/engine/scheduler"
	"go.trai.ch/proof/internal/engine/testrun"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// StoreCleaner removes the build info records of a workspace.
type StoreCleaner interface {
	Clear(root string) error
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	runner       ports.ProcessRunner
	logger       ports.Logger
	store        StoreCleaner

	stdout io.Writer
	stderr io.Writer
	getwd  func() (string, error)
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	runner ports.ProcessRunner,
	log ports.Logger,
	store StoreCleaner,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		runner:       runner,
		logger:       log,
		store:        store,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		getwd:        os.Getwd,
	}
}

// WithOutput redirects the console output of runs.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithWorkDir fixes the directory configuration is discovered from.
func (a *App) WithWorkDir(dir string) *App {
	a.getwd = func() (string, error) { return dir, nil }
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	NoCache    bool
	Jobs       int
	OutputMode string
	Tests      testrun.Options
}

// Run builds the specified targets and runs the tests they produce.
//
//nolint:cyclop // orchestration function
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	if err := opts.Tests.Validate(); err != nil {
		return err
	}

	cwd, err := a.getwd()
	if err != nil {
		return zerr.Wrap(err, "failed to get working directory")
	}

	graph, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	session := testrun.NewSession(a.runner, a.logger, opts.Tests, testrun.WithOutput(a.stdout))
	if err := session.Attach(graph); err != nil {
		return err
	}

	renderer := a.newRenderer(opts.OutputMode)

	// Spans of this run reach the renderer through the bridge only.
	bridge := telemetry.NewBridge(renderer)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	tracer := telemetry.NewOTelTracer(tp, "proof").WithBridge(bridge)
	sched := a.scheduler.WithTracer(tracer)

	report := func(ctx context.Context, buildErr error) error {
		// The summary must follow the last node line.
		_ = tp.ForceFlush(ctx)
		return session.Report(ctx, buildErr)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() (runErr error) {
		defer func() {
			if r := recover(); r != nil {
				_, _ = fmt.Fprintf(a.stderr, "Scheduler panic: %v\n", r)
				runErr = zerr.With(zerr.Wrap(domain.ErrBuildExecutionFailed, "scheduler panic"), "panic", fmt.Sprint(r))
			}
			_ = tp.Shutdown(context.WithoutCancel(ctx))
			_ = renderer.Stop()
		}()

		err := sched.Run(ctx, graph, scheduler.RunOptions{
			Targets:   targetNames,
			Jobs:      opts.Jobs,
			NoCache:   opts.NoCache,
			SessionID: session.ID(),
			Tests:     session,
			PostBuild: []scheduler.PostBuildHook{report},
		})
		if err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) newRenderer(outputMode string) ports.Renderer {
	mode := detector.ResolveMode(detector.DetectEnvironment(), outputMode)
	if mode == detector.ModeQuiet {
		return linear.NewRenderer(a.stdout, a.stderr, linear.WithQuiet())
	}
	return linear.NewRenderer(a.stdout, a.stderr)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// All removes the whole .proof directory instead of only the build info store.
	All bool
}

// Clean removes the build info store of the current workspace.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cwd, err := a.getwd()
	if err != nil {
		return zerr.Wrap(err, "failed to get working directory")
	}

	root, err := a.configLoader.DiscoverRoot(cwd)
	if err != nil {
		return err
	}

	a.logger.Info("removing build info store...")
	if err := a.store.Clear(root); err != nil {
		return zerr.With(zerr.Wrap(err, "clean"), "root", root)
	}
	a.logger.Info("removed build info store")

	if options.All {
		dir := filepath.Join(root, domain.DefaultProofPath())
		a.logger.Info(fmt.Sprintf("removing %s...", dir))
		if err := os.RemoveAll(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to remove proof directory"), "path", dir)
		}
		a.logger.Info(fmt.Sprintf("removed %s", dir))
	}
	return nil
}
