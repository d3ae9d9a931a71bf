package domain

import "runtime"

// Platform identifies the operating system family that decides how shared
// libraries are located at runtime.
type Platform uint8

const (
	// PlatformUnix covers Linux, the BSDs and every other ELF platform.
	PlatformUnix Platform = iota
	// PlatformDarwin is macOS and the other Apple platforms.
	PlatformDarwin
	// PlatformWindows resolves DLLs through PATH.
	PlatformWindows
)

// String returns a short lowercase name for the platform.
func (p Platform) String() string {
	switch p {
	case PlatformDarwin:
		return "darwin"
	case PlatformWindows:
		return "windows"
	default:
		return "unix"
	}
}

// HostPlatform returns the platform the process is running on.
func HostPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

// PlatformFor maps a GOOS value to a Platform.
func PlatformFor(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin", "ios":
		return PlatformDarwin
	default:
		return PlatformUnix
	}
}

// LibraryPathVars returns the environment variables the dynamic loader of p
// consults, in the order they are rewritten.
func LibraryPathVars(p Platform) []string {
	switch p {
	case PlatformWindows:
		return []string{"PATH"}
	case PlatformDarwin:
		return []string{"DYLD_LIBRARY_PATH", "LD_LIBRARY_PATH"}
	default:
		return []string{"LD_LIBRARY_PATH"}
	}
}

// PathListSeparator returns the separator for search path lists on p.
func PathListSeparator(p Platform) string {
	if p == PlatformWindows {
		return ";"
	}
	return ":"
}
