package shell

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// allowListedEnvVars are the system variables a build task inherits.
// Everything else is dropped so builds do not depend on the caller's shell.
var allowListedEnvVars = map[string]struct{}{
	"HOME":   {},
	"TERM":   {},
	"USER":   {},
	"PATH":   {},
	"TMPDIR": {},
	"LANG":   {},
}

// resolveEnvironment merges the allow-listed system variables, extraEnv and
// the task's own variables, in increasing priority. A PATH in extraEnv is
// prepended to the system PATH instead of replacing it.
func resolveEnvironment(sysEnv, extraEnv []string, taskEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	applyExtraEnv(envMap, extraEnv)

	for k, v := range taskEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	return envMap
}

func applyExtraEnv(envMap map[string]string, extraEnv []string) {
	for _, entry := range extraEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath := envMap["PATH"]; sysPath != "" {
				v = v + string(os.PathListSeparator) + sysPath
			}
		}
		envMap[k] = v
	}
}

// envValue returns the last value of key in env.
func envValue(env []string, key string) string {
	var value string
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok && k == key {
			value = v
		}
	}
	return value
}

// lookPath searches for an executable in the directories named by the PATH
// variable of env rather than of the current process.
func lookPath(file string, env []string) (string, error) {
	path := envValue(env, "PATH")
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

// isPathLike reports whether name refers to a file rather than a PATH lookup.
func isPathLike(name string) bool {
	return filepath.IsAbs(name) || strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}
