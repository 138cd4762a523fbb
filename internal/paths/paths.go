package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "caisson"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Permission mode for generated scripts and staged binaries.
	ExecFileMode os.FileMode = 0755
)

// Path to the cache directory, used to stage content-addressed copies of the
// caisson-init binary.
//
//	Linux:   $XDG_CACHE_HOME/caisson or ~/.cache/caisson
//	macOS:   ~/Library/Caches/caisson
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Path to the directory for short-lived runtime files (per-invocation dive
// directories that get bind-mounted into the container).
//
//	Linux:   $XDG_RUNTIME_DIR/caisson or /run/user/<uid>/caisson
//	macOS:   ~/Library/Caches/caisson/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appName)
	}
	return filepath.Join(xdg.CacheHome, appName, "run")
}
