// Package scheduler runs the nodes of a task graph in dependency order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to be executed.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
)

// TestHandler runs the test nodes of a graph.
type TestHandler interface {
	// Staleness turns the standard incremental decision for a test node into
	// the final one.
	Staleness(task *domain.Task, standard domain.Verdict) domain.Verdict
	// RunTest executes a test node, writing console output to console.
	RunTest(ctx context.Context, task *domain.Task, console io.Writer) error
}

// PostBuildHook is called once after every node of a run has finished.
// buildErr holds the joined node failures.
type PostBuildHook func(ctx context.Context, buildErr error) error

// RunOptions configure a single Run.
type RunOptions struct {
	// Targets are the nodes to build. "all" selects every node.
	Targets []string
	// Jobs bounds the number of nodes running at once. Zero means runtime.NumCPU().
	Jobs int
	// NoCache runs every build node regardless of its build info.
	NoCache bool
	// SessionID is attached to every node span.
	SessionID string
	// Tests runs test nodes. Without it test nodes are skipped.
	Tests TestHandler
	// PostBuild hooks run in order after the graph completed.
	PostBuild []PostBuildHook
}

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	executor ports.Executor
	store    ports.BuildInfoStore
	hasher   ports.Hasher
	resolver ports.InputResolver
	verifier ports.Verifier
	tracer   ports.Tracer
	logger   ports.Logger

	mu         sync.RWMutex
	taskStatus map[domain.InternedString]TaskStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	executor ports.Executor,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	resolver ports.InputResolver,
	verifier ports.Verifier,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		executor:   executor,
		store:      store,
		hasher:     hasher,
		resolver:   resolver,
		verifier:   verifier,
		tracer:     tracer,
		logger:     logger,
		taskStatus: make(map[domain.InternedString]TaskStatus),
	}
}

// WithTracer returns a copy of the scheduler that reports to tracer.
func (s *Scheduler) WithTracer(tracer ports.Tracer) *Scheduler {
	return NewScheduler(s.executor, s.store, s.hasher, s.resolver, s.verifier, tracer, s.logger)
}

// initTaskStatuses initializes the status of tasks in the graph to Pending.
func (s *Scheduler) initTaskStatuses(tasks []domain.InternedString) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		s.taskStatus[task] = StatusPending
	}
}

// updateStatus updates the status of a task.
func (s *Scheduler) updateStatus(name domain.InternedString, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

// Run executes the requested targets, their dependencies and the test nodes
// of every selected target. A failing node does not stop its siblings, but
// its dependents are never started. Once no node is left, the post-build
// hooks run; their errors are joined with the node failures.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, opts RunOptions) error {
	if len(opts.Targets) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}

	// Validate populates the execution order and the dependents index.
	if err := graph.Validate(); err != nil {
		return err
	}

	state, err := s.newRunState(ctx, graph, opts)
	if err != nil {
		return err
	}

	plannedTasks := make([]string, 0, len(state.allTasks))
	depMap := make(map[string][]string, len(state.allTasks))
	for task := range graph.Walk() {
		if _, ok := state.tasks[task.Name]; !ok {
			continue
		}
		name := task.Name.String()
		plannedTasks = append(plannedTasks, name)
		deps := make([]string, len(task.Dependencies))
		for i, dep := range task.Dependencies {
			deps[i] = dep.String()
		}
		depMap[name] = deps
	}

	s.tracer.EmitPlan(ctx, plannedTasks, depMap, opts.Targets)

	s.initTaskStatuses(state.allTasks)

	buildErr := state.runExecutionLoop()

	errs := buildErr
	for _, hook := range opts.PostBuild {
		if err := hook(ctx, buildErr); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, domain.ErrPostBuildHookFailed.Error()))
		}
	}
	return errs
}

type result struct {
	task        domain.InternedString
	err         error
	skipped     bool
	inputHash   string
	taskOutputs []string
}

type schedulerRunState struct {
	graph     *domain.Graph
	inDegree  map[domain.InternedString]int
	tasks     map[domain.InternedString]domain.Task
	ready     []domain.InternedString
	active    int
	resultsCh chan result
	errs      error
	ctx       context.Context
	opts      RunOptions
	s         *Scheduler
	allTasks  []domain.InternedString
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	opts RunOptions,
) (*schedulerRunState, error) {
	tasksToRun, allTasks, err := s.resolveTasksToRun(graph, opts.Targets)
	if err != nil {
		return nil, err
	}

	taskCount := len(tasksToRun)
	inDegree := make(map[domain.InternedString]int, taskCount)
	tasks := make(map[domain.InternedString]domain.Task, taskCount)

	for _, name := range allTasks {
		task, _ := graph.GetTask(name)
		tasks[name] = task

		// Only dependencies that take part in this run count.
		degree := 0
		for _, dep := range task.Dependencies {
			if tasksToRun[dep] {
				degree++
			}
		}
		inDegree[name] = degree
	}

	// Seed the ready queue in execution order so runs are reproducible.
	var ready []domain.InternedString
	for task := range graph.Walk() {
		if degree, ok := inDegree[task.Name]; ok && degree == 0 {
			ready = append(ready, task.Name)
		}
	}

	return &schedulerRunState{
		graph:     graph,
		inDegree:  inDegree,
		tasks:     tasks,
		ready:     ready,
		resultsCh: make(chan result, opts.Jobs),
		ctx:       ctx,
		opts:      opts,
		s:         s,
		allTasks:  allTasks,
	}, nil
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				return errors.Join(state.errs, state.ctx.Err())
			}
			// Drain the nodes still running.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (s *Scheduler) resolveTasksToRun(
	graph *domain.Graph,
	targetNames []string,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	if slices.Contains(targetNames, "all") {
		return s.resolveAllTasks(graph)
	}
	return s.resolveTargetTasks(graph, targetNames)
}

func (s *Scheduler) resolveAllTasks(
	graph *domain.Graph,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	tasksToRun := make(map[domain.InternedString]bool)
	allTasks := make([]domain.InternedString, 0, graph.TaskCount())
	for task := range graph.Walk() {
		tasksToRun[task.Name] = true
		allTasks = append(allTasks, task.Name)
	}
	return tasksToRun, allTasks, nil
}

func (s *Scheduler) resolveTargetTasks(
	graph *domain.Graph,
	targetNames []string,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	targets := make([]domain.InternedString, 0, len(targetNames))
	for _, nameStr := range targetNames {
		name := domain.NewInternedString(nameStr)
		if _, ok := graph.GetTask(name); !ok {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "resolve targets"), "task", name.String())
		}
		targets = append(targets, name)
	}

	return s.collectDependencies(graph, targets)
}

// collectDependencies walks the dependencies of targets breadth first. The
// test node of every visited task is pulled in as well, so building a target
// also tests it.
func (s *Scheduler) collectDependencies(
	graph *domain.Graph,
	targets []domain.InternedString,
) (map[domain.InternedString]bool, []domain.InternedString, error) {
	tasksToRun := make(map[domain.InternedString]bool)
	var allTasks []domain.InternedString

	queue := slices.Clone(targets)
	visited := make(map[domain.InternedString]bool)
	for _, t := range targets {
		visited[t] = true
	}

	enqueue := func(name domain.InternedString) {
		if !visited[name] {
			visited[name] = true
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		currentName := queue[0]
		queue = queue[1:]

		if !tasksToRun[currentName] {
			tasksToRun[currentName] = true
			allTasks = append(allTasks, currentName)
		}

		task, _ := graph.GetTask(currentName)
		for _, dep := range task.Dependencies {
			enqueue(dep)
		}
		if !task.IsTest() {
			if testNode := domain.TestNodeName(currentName); hasTask(graph, testNode) {
				enqueue(testNode)
			}
		}
	}

	return tasksToRun, allTasks, nil
}

func hasTask(graph *domain.Graph, name domain.InternedString) bool {
	_, ok := graph.GetTask(name)
	return ok
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.opts.Jobs && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(taskName, StatusRunning)

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *schedulerRunState) spanOptions(t *domain.Task) []ports.SpanOption {
	opts := []ports.SpanOption{ports.WithAttribute(ports.AttrNode, t.Name.String())}
	if state.opts.SessionID != "" {
		opts = append(opts, ports.WithAttribute(ports.AttrSession, state.opts.SessionID))
	}
	return opts
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	// The span must end before the result is sent, otherwise the loop may
	// finish before the span is recorded.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String(), state.spanOptions(t)...)
		defer span.End()

		var res result
		if t.IsTest() {
			res = state.runTest(ctx, t, span)
		} else {
			res = state.runBuild(ctx, t, span)
		}

		if res.err != nil {
			span.RecordError(res.err)
		}
		if res.skipped {
			span.SetAttribute(ports.AttrCached, true)
		}
		return res
	}()

	state.resultsCh <- res
}

// runBuild runs a build node unless its build info shows it is up to date.
func (state *schedulerRunState) runBuild(ctx context.Context, t *domain.Task, span ports.Span) result {
	skipped, hash, err := state.computeInputHash(t)
	if err != nil {
		return result{task: t.Name, err: err}
	}
	if skipped {
		return result{task: t.Name, skipped: true, inputHash: hash}
	}

	// Stale artifacts must not survive a failed build.
	if err = state.validateAndCleanOutputs(t); err != nil {
		return result{task: t.Name, err: err}
	}

	outputs := make([]string, len(t.Outputs))
	for i, out := range t.Outputs {
		outputs[i] = out.String()
	}

	if err = state.s.executor.Execute(ctx, t, nil, span, span); err != nil {
		return result{task: t.Name, err: err}
	}

	if err = state.verifyOutputsExist(outputs); err != nil {
		return result{task: t.Name, err: err}
	}

	return result{task: t.Name, inputHash: hash, taskOutputs: outputs}
}

// runTest asks the test handler whether the node runs and runs it.
func (state *schedulerRunState) runTest(ctx context.Context, t *domain.Task, span ports.Span) result {
	tests := state.opts.Tests
	if tests == nil {
		return result{task: t.Name, skipped: true}
	}

	standard := domain.VerdictRun
	upToDate, hash, err := state.computeInputHash(t)
	if err != nil {
		return result{task: t.Name, err: err}
	}
	if upToDate {
		standard = domain.VerdictSkip
	}

	if tests.Staleness(t, standard) == domain.VerdictSkip {
		return result{task: t.Name, skipped: true, inputHash: hash}
	}

	if err := tests.RunTest(ctx, t, span); err != nil {
		return result{task: t.Name, err: err}
	}
	return result{task: t.Name, inputHash: hash}
}

func (state *schedulerRunState) computeInputHash(t *domain.Task) (skipped bool, hash string, err error) {
	if state.opts.NoCache {
		h, forceErr := state.s.computeHashForce(t, state.graph.Root())
		return false, h, forceErr
	}
	return state.s.checkTaskCache(state.ctx, t, state.graph.Root())
}

func (state *schedulerRunState) verifyOutputsExist(outputs []string) error {
	if len(outputs) == 0 {
		return nil
	}
	ok, err := state.s.verifier.VerifyOutputs(state.graph.Root(), outputs)
	if err != nil {
		return err
	}
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrMissingOutput, "verify outputs"), "outputs", strings.Join(outputs, ", "))
	}
	return nil
}

func (state *schedulerRunState) validateAndCleanOutputs(t *domain.Task) error {
	rootAbs, err := filepath.Abs(state.graph.Root())
	if err != nil {
		return zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}

	for _, out := range t.Outputs {
		outPath := out.String()
		outAbs := outPath
		if !filepath.IsAbs(outAbs) {
			outAbs = filepath.Join(rootAbs, outPath)
		}
		outAbs = filepath.Clean(outAbs)

		rel, err := filepath.Rel(rootAbs, outAbs)
		if err != nil {
			return zerr.With(
				zerr.Wrap(err, domain.ErrFailedToResolveRelativePath.Error()),
				"file", outPath,
			)
		}

		if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return zerr.With(
				zerr.Wrap(domain.ErrOutputPathOutsideRoot, "clean outputs"),
				"file", outPath,
			)
		}

		// Remove exactly the path that was validated.
		if err := os.RemoveAll(outAbs); err != nil {
			return zerr.With(
				zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()),
				"file", outPath,
			)
		}
	}

	return nil
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(zerr.Wrap(res.err, domain.ErrTaskExecutionFailed.Error()), "task", res.task.String())
		state.errs = errors.Join(state.errs, enhancedErr)
		state.s.updateStatus(res.task, StatusFailed)
		return
	}
	state.handleSuccess(res)
}

func (state *schedulerRunState) handleSuccess(res result) {
	state.s.updateStatus(res.task, StatusCompleted)
	if !res.skipped {
		state.recordBuildInfo(res)
	}

	for _, dep := range state.graph.Dependents(res.task) {
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}

// recordBuildInfo stores the hashes of a successful node. A failure only
// costs the next run a rebuild, so it is logged and not returned.
func (state *schedulerRunState) recordBuildInfo(res result) {
	outputHash := ""
	if len(res.taskOutputs) > 0 {
		h, err := state.s.hasher.ComputeOutputHash(res.taskOutputs, state.graph.Root())
		if err != nil {
			return
		}
		outputHash = h
	}

	err := state.s.store.Put(state.graph.Root(), domain.BuildInfo{
		TaskName:   res.task.String(),
		InputHash:  res.inputHash,
		OutputHash: outputHash,
		Timestamp:  time.Now(),
	})
	if err != nil && state.s.logger != nil {
		state.s.logger.Warn(fmt.Sprintf("could not record build info for %s: %v", res.task, err))
	}
}

// computeHashForce computes the input hash without consulting the store.
func (s *Scheduler) computeHashForce(task *domain.Task, root string) (string, error) {
	inputs := make([]string, len(task.Inputs))
	for i, input := range task.Inputs {
		inputs[i] = input.String()
	}
	resolvedInputs, err := s.resolver.ResolveInputs(inputs, root)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrInputResolutionFailed.Error())
	}

	hash, err := s.hasher.ComputeInputHash(task, task.Environment, resolvedInputs)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrInputHashComputationFailed.Error())
	}

	return hash, nil
}

// checkTaskCache reports whether the task is up to date according to its
// stored build info.
func (s *Scheduler) checkTaskCache(
	_ context.Context,
	task *domain.Task,
	root string,
) (skipped bool, hash string, err error) {
	hash, err = s.computeHashForce(task, root)
	if err != nil {
		return false, "", err
	}

	info, err := s.store.Get(root, task.Name.String())
	if err != nil {
		return false, hash, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	if info == nil || info.InputHash != hash {
		return false, hash, nil
	}

	if !s.verifyOutputsMatch(task, info, root) {
		return false, hash, nil
	}

	return true, hash, nil
}

// verifyOutputsMatch checks if cached outputs match current outputs.
func (s *Scheduler) verifyOutputsMatch(task *domain.Task, info *domain.BuildInfo, root string) bool {
	if len(task.Outputs) == 0 {
		return true
	}

	outputs := make([]string, len(task.Outputs))
	for i, out := range task.Outputs {
		outputs[i] = out.String()
	}

	outputHash, err := s.hasher.ComputeOutputHash(outputs, root)
	if err != nil {
		// A missing output is a cache miss.
		return false
	}

	return info.OutputHash == outputHash
}
