package domain

import "time"

// BuildInfo represents the build information for a task.
type BuildInfo struct {
	TaskName   string    `json:"task_name,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

// Verdict is the incremental decision for a single task.
type Verdict uint8

const (
	// VerdictRun means the task must execute.
	VerdictRun Verdict = iota
	// VerdictSkip means the task is up to date and is not executed.
	VerdictSkip
)

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	if v == VerdictSkip {
		return "skip"
	}
	return "run"
}
