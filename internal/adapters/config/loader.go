// Package config loads proof.yaml and proof.work.yaml files into a task graph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using YAML files.
type Loader struct {
	logger ports.Logger
	fs     FileSystem
}

// NewLoader creates a new Loader reading from the real filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return NewLoaderWithFS(logger, NewOSFS())
}

// NewLoaderWithFS creates a new Loader reading from fsys.
func NewLoaderWithFS(logger ports.Logger, fsys FileSystem) *Loader {
	return &Loader{logger: logger, fs: fsys}
}

// Mode represents the configuration mode of proof.
type Mode string

const (
	// ModeWorkspace indicates that a workfile was found.
	ModeWorkspace Mode = "workspace"
	// ModeStandalone indicates that only a single prooffile was found.
	ModeStandalone Mode = "standalone"
)

var validProjectNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// project is a prooffile together with the directory its paths are relative to.
type project struct {
	file *Prooffile
	dir  string
	name string // empty in standalone mode
}

// Load reads the configuration governing cwd and returns the task graph.
func (l *Loader) Load(cwd string) (*domain.Graph, error) {
	configPath, mode, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeStandalone:
		return l.loadProoffile(configPath)
	case ModeWorkspace:
		return l.loadWorkfile(configPath)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "load config"), "mode", mode)
	}
}

// DiscoverRoot returns the root directory of the configuration governing cwd.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, mode, err := l.findConfiguration(cwd)
	if err != nil {
		return "", err
	}

	var root string
	if mode == ModeWorkspace {
		var workfile Workfile
		if err := l.readYAML(configPath, &workfile); err != nil {
			return "", err
		}
		root = workfile.Root
	} else {
		var prooffile Prooffile
		if err := l.readYAML(configPath, &prooffile); err != nil {
			return "", err
		}
		root = prooffile.Root
	}
	return resolveRoot(configPath, root), nil
}

// findConfiguration walks up from cwd. The nearest workfile wins over any
// prooffile; otherwise the nearest prooffile is used.
func (l *Loader) findConfiguration(cwd string) (string, Mode, error) {
	currentDir := cwd
	var standaloneCandidate string

	for {
		workfilePath := filepath.Join(currentDir, domain.WorkFileName)
		if _, err := l.fs.Stat(workfilePath); err == nil {
			return workfilePath, ModeWorkspace, nil
		}

		if standaloneCandidate == "" {
			prooffilePath := filepath.Join(currentDir, domain.ProofFileName)
			if _, err := l.fs.Stat(prooffilePath); err == nil {
				standaloneCandidate = prooffilePath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	if standaloneCandidate != "" {
		return standaloneCandidate, ModeStandalone, nil
	}

	return "", "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "load config"), "cwd", cwd)
}

func (l *Loader) loadProoffile(configPath string) (*domain.Graph, error) {
	var prooffile Prooffile
	if err := l.readYAML(configPath, &prooffile); err != nil {
		return nil, err
	}

	if prooffile.Project != "" {
		l.logger.Warn(fmt.Sprintf("'project' defined in %s has no effect in standalone mode", domain.ProofFileName))
	}

	g := domain.NewGraph()
	g.SetRoot(resolveRoot(configPath, prooffile.Root))

	p := project{file: &prooffile, dir: filepath.Dir(configPath)}
	if err := l.addProjectTasks(g, p); err != nil {
		return nil, err
	}
	return g, nil
}

func (l *Loader) loadWorkfile(configPath string) (*domain.Graph, error) {
	var workfile Workfile
	if err := l.readYAML(configPath, &workfile); err != nil {
		return nil, err
	}

	g := domain.NewGraph()
	workspaceRoot := resolveRoot(configPath, workfile.Root)
	g.SetRoot(workspaceRoot)

	projectPaths, err := l.resolveProjectPaths(workspaceRoot, workfile.Projects)
	if err != nil {
		return nil, err
	}

	// project name -> relative path of its first occurrence
	projectNames := make(map[string]string)
	for _, projectPath := range projectPaths {
		if err := l.processProject(g, workspaceRoot, projectPath, projectNames); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (l *Loader) resolveProjectPaths(workspaceRoot string, patterns []string) ([]string, error) {
	projectPaths := make(map[string]struct{})

	for _, pattern := range patterns {
		matches, err := l.fs.Glob(filepath.Join(workspaceRoot, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "glob pattern failed"), "pattern", pattern)
		}

		for _, match := range matches {
			projectPaths[match] = struct{}{}
		}
	}

	sortedPaths := make([]string, 0, len(projectPaths))
	for p := range projectPaths {
		sortedPaths = append(sortedPaths, p)
	}
	slices.Sort(sortedPaths)

	return sortedPaths, nil
}

func (l *Loader) processProject(
	g *domain.Graph,
	workspaceRoot, projectPath string,
	projectNames map[string]string,
) error {
	relPath, _ := filepath.Rel(workspaceRoot, projectPath)

	// Glob returns files too.
	isDir, err := l.fs.IsDir(projectPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "directory", relPath)
	}
	if !isDir {
		return nil
	}

	prooffilePath := filepath.Join(projectPath, domain.ProofFileName)
	if _, statErr := l.fs.Stat(prooffilePath); os.IsNotExist(statErr) {
		l.logger.Warn(fmt.Sprintf("%s missing in project %s, skipping", domain.ProofFileName, relPath))
		return nil
	}

	var prooffile Prooffile
	if err := l.readYAML(prooffilePath, &prooffile); err != nil {
		return zerr.With(err, "directory", relPath)
	}

	if err := validateProjectName(prooffile.Project, relPath); err != nil {
		return err
	}

	if existingPath, exists := projectNames[prooffile.Project]; exists {
		err := zerr.With(zerr.Wrap(domain.ErrDuplicateProjectName, "load config"), "project_name", prooffile.Project)
		err = zerr.With(err, "first_occurrence", existingPath)
		return zerr.With(err, "duplicate_at", relPath)
	}
	projectNames[prooffile.Project] = relPath

	if prooffile.Root != "" {
		l.logger.Warn(fmt.Sprintf("'root' defined in %s is ignored in workspace mode", relPath))
	}

	return l.addProjectTasks(g, project{file: &prooffile, dir: projectPath, name: prooffile.Project})
}

func validateProjectName(name, relPath string) error {
	if name == "" {
		return zerr.With(zerr.Wrap(domain.ErrMissingProjectName, "load config"), "directory", relPath)
	}
	if !validProjectNameRegex.MatchString(name) {
		err := zerr.With(zerr.Wrap(domain.ErrInvalidProjectName, "load config"), "project_name", name)
		return zerr.With(err, "directory", relPath)
	}
	return nil
}

func (l *Loader) addProjectTasks(g *domain.Graph, p project) error {
	// In workspace mode, dependencies may point into other projects; those are
	// checked by Graph.Validate once every project is loaded.
	declared := p.file.Tasks.Names()

	for _, entry := range p.file.Tasks {
		if err := validateTaskName(entry.Name); err != nil {
			return err
		}
		if p.name == "" {
			if err := checkLocalRefs(entry, declared); err != nil {
				return err
			}
		}

		task, err := buildTask(g.Root(), p, entry)
		if err != nil {
			return err
		}

		if err := g.AddTask(task); err != nil {
			return err
		}
	}
	return nil
}

// checkLocalRefs verifies that dependencies and test ordering refer to declared tasks.
func checkLocalRefs(entry TaskEntry, declared map[string]bool) error {
	refs := entry.Task.DependsOn
	if entry.Task.Test != nil {
		refs = append(slices.Clone(refs), entry.Task.Test.After...)
	}
	for _, ref := range refs {
		if !declared[ref] {
			err := zerr.With(zerr.Wrap(domain.ErrMissingDependency, "load config"), "missing_dependency", ref)
			return zerr.With(err, "task", entry.Name)
		}
	}
	return nil
}

// buildTask creates a domain.Task from a task entry. Inputs, outputs and the
// link are stored relative to root; working directories are absolute.
func buildTask(root string, p project, entry TaskEntry) (*domain.Task, error) {
	dto := entry.Task
	name := qualify(p.name, entry.Name)

	inputs, err := rebasePaths(dto.Input, p.dir, root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to rebase inputs"), "task", name)
	}
	outputs, err := rebasePaths(dto.Target, p.dir, root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to rebase targets"), "task", name)
	}

	task := &domain.Task{
		Name:         domain.NewInternedString(name),
		Command:      dto.Cmd,
		Inputs:       canonicalizeStrings(inputs),
		Outputs:      canonicalizeStrings(outputs),
		Dependencies: domain.NewInternedStrings(namespaceNames(p.name, dto.DependsOn)),
		Environment:  dto.Environment,
		WorkingDir:   resolveTaskWorkingDir(p.dir, dto.WorkingDir),
		Group:        domain.NewInternedString(p.name),
	}

	if dto.Link != "" {
		link, err := rebaseLink(dto.Link, p.dir, root)
		if err != nil {
			return nil, zerr.With(err, "task", name)
		}
		task.Link = domain.NewInternedString(link)
	}

	if dto.Test != nil {
		task.Test = buildTestSpec(p, dto.Test)
	}

	return task, nil
}

// buildTestSpec resolves the test block against the project directory. A
// relative executable path in the command is made absolute so it does not
// depend on the directory the test runs in.
func buildTestSpec(p project, dto *TestDTO) *domain.TestSpec {
	spec := &domain.TestSpec{
		After: domain.NewInternedStrings(namespaceNames(p.name, dto.After)),
	}

	if len(dto.Cmd) > 0 {
		spec.Command = slices.Clone(dto.Cmd)
		if exe := spec.Command[0]; !filepath.IsAbs(exe) && strings.ContainsRune(exe, '/') {
			spec.Command[0] = filepath.Join(p.dir, exe)
		}
	}

	if dto.WorkingDir != "" {
		spec.WorkingDir = resolveTaskWorkingDir(p.dir, dto.WorkingDir).String()
	}

	return spec
}

func rebaseLink(link, base, root string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Join(base, link))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.Wrap(domain.ErrLinkOutsideRoot, "load config"), "link", link)
	}
	return rel, nil
}

func rebasePaths(paths []string, base, root string) ([]string, error) {
	rebased := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, filepath.Join(base, p))
		if err != nil {
			return nil, err
		}
		rebased[i] = rel
	}
	return rebased, nil
}

// qualify namespaces a task name with its project in workspace mode.
func qualify(projectName, taskName string) string {
	if projectName == "" {
		return taskName
	}
	return projectName + ":" + taskName
}

func namespaceNames(projectName string, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	namespaced := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, ":") {
			namespaced = append(namespaced, name)
		} else {
			namespaced = append(namespaced, qualify(projectName, name))
		}
	}
	return namespaced
}

func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}

	sorted := slices.Clone(strs)
	slices.Sort(sorted)
	return domain.NewInternedStrings(slices.Compact(sorted))
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readYAML reads a YAML file and unmarshals it into target.
func (l *Loader) readYAML(configPath string, target any) error {
	data, err := l.fs.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "file", configPath)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "file", configPath)
	}

	return nil
}

// validateTaskName rejects reserved names and characters used for namespacing.
func validateTaskName(name string) error {
	if name == "all" {
		return zerr.With(zerr.Wrap(domain.ErrReservedTaskName, "load config"), "task_name", name)
	}
	for _, char := range []string{":", "#"} {
		if strings.Contains(name, char) {
			err := zerr.With(zerr.Wrap(domain.ErrInvalidTaskName, "load config"), "invalid_character", char)
			return zerr.With(err, "task_name", name)
		}
	}
	return nil
}

// resolveTaskWorkingDir resolves a configured working directory against baseDir.
func resolveTaskWorkingDir(baseDir, configuredWorkingDir string) domain.InternedString {
	if configuredWorkingDir == "" {
		return domain.NewInternedString(filepath.Clean(baseDir))
	}

	if filepath.IsAbs(configuredWorkingDir) {
		return domain.NewInternedString(filepath.Clean(configuredWorkingDir))
	}

	return domain.NewInternedString(filepath.Clean(filepath.Join(baseDir, configuredWorkingDir)))
}
