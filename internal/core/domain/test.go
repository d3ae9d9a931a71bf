package domain

import (
	"io"
	"time"
)

// TestStatus is the outcome of a test binary that was spawned successfully.
type TestStatus uint8

const (
	// StatusPassed means the binary exited with code 0.
	StatusPassed TestStatus = iota
	// StatusFailed means the binary exited non-zero and failures are fatal.
	StatusFailed
	// StatusTolerated means the binary exited non-zero in permissive mode.
	StatusTolerated
)

// String returns the lowercase name of the status.
func (s TestStatus) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusTolerated:
		return "tolerated"
	default:
		return "passed"
	}
}

// TestOutcome is returned by a test task after its process terminated.
type TestOutcome struct {
	Status TestStatus
	Record TestRecord
	// Message is the formatted failure message. It is empty for passing tests.
	Message string
}

// TestRecord is the captured result of one executed test binary.
type TestRecord struct {
	Name     string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	// NotStarted is set when the process could not be spawned.
	NotStarted bool
}

// Passed reports whether the record describes a successful run.
func (r TestRecord) Passed() bool {
	return r.ExitCode == 0
}

// TestSummary aggregates the records of a session.
type TestSummary struct {
	Total   int
	Passed  int
	Failed  int
	Records []TestRecord
}

// ExitCodeSpawnFailed is the exit code recorded alongside NotStarted.
const ExitCodeSpawnFailed = -1

// ProcessSpec describes a single child process.
type ProcessSpec struct {
	Command []string
	Dir     string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// EnvSnapshot is the runtime environment shared by every test of a session.
type EnvSnapshot struct {
	// SearchPaths are the build-local library directories, first-seen order.
	SearchPaths []string
	// Vars is the full environment in KEY=VALUE form.
	Vars []string
}
