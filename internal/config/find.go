package config

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Name of the configuration file searched for.
const FileName = ".caisson.yml"

// When set in the environment, discovery may cross filesystem boundaries
// while walking up toward the root.
const EnvCrossFilesystem = "CAISSON_DISCOVERY_ACROSS_FILESYSTEM"

// Searches for a configuration file, starting at startDir and walking up
// toward the root. Returns the project top directory (the one holding the
// file), the path of startDir relative to it, and the parsed configuration.
//
// The walk stops at a filesystem boundary unless EnvCrossFilesystem is set,
// so discovery cannot wander out of a bind-mounted workspace.
func Find(startDir string) (top string, rel string, cfg *Config, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: resolving %s: %v", ErrNotFound, startDir, err)
	}

	crossFS := os.Getenv(EnvCrossFilesystem) != ""
	startDev, haveDev := deviceOf(dir)

	for {
		path := filepath.Join(dir, FileName)
		if info, serr := os.Stat(path); serr == nil && info.Mode().IsRegular() {
			cfg, err = Load(path)
			if err != nil {
				return "", "", nil, err
			}
			rel, err = filepath.Rel(dir, mustAbs(startDir))
			if err != nil {
				return "", "", nil, fmt.Errorf("%w: relating %s to %s: %v", ErrNotFound, startDir, dir, err)
			}
			return dir, rel, cfg, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if !crossFS && haveDev {
			if dev, ok := deviceOf(parent); ok && dev != startDev {
				return "", "", nil, fmt.Errorf(
					"%w: no %s found here or in any parent up to filesystem boundary %s\n"+
						"set %s=1 to cross filesystems", ErrNotFound, FileName, dir, EnvCrossFilesystem)
			}
		}
		dir = parent
	}

	return "", "", nil, fmt.Errorf("%w: no %s found here or in any parent directory",
		ErrNotFound, FileName)
}

// Reports the device number of the filesystem holding path.
func deviceOf(path string) (uint64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(st.Dev), true
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
