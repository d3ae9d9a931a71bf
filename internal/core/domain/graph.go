// Package domain contains the core domain models and business logic for the task dependency graph.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of tasks.
type Graph struct {
	root           string
	tasks          map[InternedString]Task
	order          []InternedString
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[InternedString]Task),
		dependents: make(map[InternedString][]InternedString),
	}
}

// SetRoot sets the directory relative paths in the graph are resolved against.
func (g *Graph) SetRoot(root string) {
	g.root = root
}

// Root returns the directory relative paths in the graph are resolved against.
func (g *Graph) Root() string {
	return g.root
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTaskAlreadyExists, "add task"), "task_name", t.Name.String())
	}
	g.tasks[t.Name] = *t
	g.order = append(g.order, t.Name)
	return nil
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Tasks returns an iterator over all tasks in insertion order.
func (g *Graph) Tasks() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.order {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// Dependents returns the names of tasks that depend directly on name.
// It is populated by Validate.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Validate checks for missing dependencies and cycles using a topological sort.
// Disconnected components are visited in insertion order so the resulting
// execution order is stable across runs.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.tasks))
	g.dependents = make(map[InternedString][]InternedString, len(g.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task := g.tasks[u]
		for _, dep := range task.Dependencies {
			if _, exists := g.tasks[dep]; !exists {
				return zerr.With(
					zerr.With(zerr.Wrap(ErrMissingDependency, "validate graph"), "dependency", dep.String()),
					"task", u.String(),
				)
			}
			switch visited[dep] {
			case 1:
				return buildCycleError(path, dep)
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.order {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for _, name := range g.order {
		for _, dep := range g.tasks[name].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}

	var b strings.Builder
	for _, node := range path[startIdx:] {
		b.WriteString(node.String())
		b.WriteString(" -> ")
	}
	b.WriteString(dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "validate graph"), "cycle", b.String())
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}
