// Package detector picks the console output mode from the environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeQuiet prints one status line per node and shows output only for failures.
	ModeQuiet
	// ModeLinear streams every output line prefixed with its node name.
	ModeLinear
)

func (m OutputMode) String() string {
	switch m {
	case ModeQuiet:
		return "quiet"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode for the current process.
func DetectEnvironment() OutputMode {
	return Detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv)
}

// Detect returns ModeQuiet for interactive terminals and ModeLinear for
// pipes and CI runs, where the full log is what people read afterwards.
func Detect(isTTY bool, getenv func(string) string) OutputMode {
	ci := getenv("CI")
	isCI := ci == "true" || ci == "1"

	if !isTTY || isCI {
		return ModeLinear
	}
	return ModeQuiet
}

// ResolveMode applies the user's --output-mode flag to the detected mode.
// userFlag should be one of: "auto", "quiet", "linear", "ci", or empty.
// Unknown values fall back to the detected mode.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "quiet":
		return ModeQuiet
	case "linear", "ci":
		return ModeLinear
	default:
		return autoDetected
	}
}
