package domain

// Task represents a unit of work in the build system.
// It uses InternedString for fields that are frequently repeated to save memory.
type Task struct {
	Name         InternedString
	Command      []string
	Inputs       []InternedString
	Outputs      []InternedString
	Dependencies []InternedString
	Environment  map[string]string
	WorkingDir   InternedString

	// Group is the scheduling group the task belongs to. In workspace mode it is the project name.
	Group InternedString

	// Link is the path of the linked artifact the task produces (library or executable).
	// It is empty for tasks that do not link anything.
	Link InternedString

	// Test is non-nil when the linked artifact is a test binary.
	Test *TestSpec

	// TestOf is set on synthesized test nodes and names the target whose artifact they run.
	TestOf InternedString
}

// TestSpec declares the test capability of a target.
type TestSpec struct {
	// Command overrides the argv used to run the artifact. Nil runs the artifact directly.
	Command []string
	// WorkingDir overrides the directory the test runs in. Empty means the artifact's directory.
	WorkingDir string
	// After lists extra tasks that must complete before the test runs.
	After []InternedString
}

// IsTest reports whether t is a synthesized test node.
func (t *Task) IsTest() bool {
	return t.TestOf.String() != ""
}
