package config

import (
	"gopkg.in/yaml.v3"
)

// Workfile represents the structure of the proof.work.yaml configuration file.
type Workfile struct {
	Version  string   `yaml:"version"`
	Root     string   `yaml:"root"`
	Projects []string `yaml:"projects"`
}

// Prooffile represents the structure of the proof.yaml configuration file.
type Prooffile struct {
	Version string      `yaml:"version"`
	Project string      `yaml:"project"`
	Root    string      `yaml:"root"`
	Tasks   TaskEntries `yaml:"tasks"`
}

// TaskDTO represents a task definition in the configuration.
type TaskDTO struct {
	Input       []string          `yaml:"input"`
	Cmd         []string          `yaml:"cmd"`
	Target      []string          `yaml:"target"`
	DependsOn   []string          `yaml:"dependsOn"`
	Environment map[string]string `yaml:"environment"`
	WorkingDir  string            `yaml:"workingDir"`
	Link        string            `yaml:"link"`
	Test        *TestDTO          `yaml:"test"`
}

// TestDTO represents the test block of a task.
type TestDTO struct {
	Cmd        []string `yaml:"cmd"`
	WorkingDir string   `yaml:"workingDir"`
	After      []string `yaml:"after"`
}

// TaskEntry is a named task in declaration order.
type TaskEntry struct {
	Name string
	Task *TaskDTO
}

// TaskEntries keeps tasks in the order they are declared in the file, so
// graphs and library search paths come out the same on every load.
type TaskEntries []TaskEntry

// UnmarshalYAML decodes a mapping of task names to definitions.
func (e *TaskEntries) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return &yaml.TypeError{Errors: []string{"tasks must be a mapping"}}
	}

	entries := make(TaskEntries, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name string
		if err := value.Content[i].Decode(&name); err != nil {
			return err
		}
		dto := &TaskDTO{}
		if err := value.Content[i+1].Decode(dto); err != nil {
			return err
		}
		entries = append(entries, TaskEntry{Name: name, Task: dto})
	}

	*e = entries
	return nil
}

// Names returns the set of declared task names.
func (e TaskEntries) Names() map[string]bool {
	names := make(map[string]bool, len(e))
	for _, entry := range e {
		names[entry.Name] = true
	}
	return names
}
