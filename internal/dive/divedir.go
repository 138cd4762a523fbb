package dive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/cruciblehq/caisson/internal"
	"github.com/cruciblehq/caisson/internal/paths"
)

// Container path the per-invocation directory is mounted at.
const mountPoint = "/.caisson"

const (
	commandScript  = "command.sh"
	hookRootScript = "hook_root.sh"
	hookUserScript = "hook_user.sh"
)

// Per-invocation staging directory, bind-mounted into the container at
// /.caisson. Holds the caisson-init binary and the generated scripts.
type diveDir struct {
	path string
}

// Creates a fresh staging directory under the runtime path.
func newDiveDir() (*diveDir, error) {
	base := paths.Runtime()
	if err := os.MkdirAll(base, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrDive, base, err)
	}

	dir, err := os.MkdirTemp(base, "dive-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", ErrDive, err)
	}

	// Container processes run as arbitrary uids and still need to read the
	// mounted scripts.
	if err := os.Chmod(dir, paths.ExecFileMode); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: opening up %s: %v", ErrDive, dir, err)
	}

	return &diveDir{path: dir}, nil
}

// Removes the staging directory and everything in it.
func (d *diveDir) cleanup() {
	os.RemoveAll(d.path)
}

// Returns the in-container path of a staged file.
func (d *diveDir) containerPath(name string) string {
	return mountPoint + "/" + name
}

// Writes the build command script. The script is fed to the configured
// shell, so it carries no shebang; set -e stops on the first failing line.
func (d *diveDir) writeCommand(lines []string) error {
	content := "set -e\n" + strings.Join(lines, "\n") + "\n"
	return d.writeFile(commandScript, content, paths.DefaultFileMode)
}

// Writes a hook script. Hooks are executed directly by caisson-init, so the
// shell goes into a shebang line.
func (d *diveDir) writeHook(name, shell string, lines []string) error {
	content := "#!" + shell + "\nset -e\n" + strings.Join(lines, "\n") + "\n"
	return d.writeFile(name, content, paths.ExecFileMode)
}

func (d *diveDir) writeFile(name, content string, mode os.FileMode) error {
	path := filepath.Join(d.path, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrDive, name, err)
	}
	return nil
}

// Stages the caisson-init binary into the directory.
//
// The binary ships next to the caisson executable. It is first copied into
// a content-addressed cache slot, then from the cache into the staging
// directory, so concurrent dives share one verified copy and an upgraded
// binary lands in a fresh slot instead of overwriting one in use.
func (d *diveDir) stageInit() error {
	source, err := findInit()
	if err != nil {
		return err
	}

	cached, err := cacheInit(source)
	if err != nil {
		return err
	}

	dest := filepath.Join(d.path, internal.InitName)
	if err := copyFile(cached, dest, paths.ExecFileMode); err != nil {
		return fmt.Errorf("%w: staging %s: %v", ErrDive, internal.InitName, err)
	}
	return nil
}

// Locates the caisson-init binary next to the running executable.
func findInit() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: locating executable: %v", ErrDive, err)
	}

	path := filepath.Join(filepath.Dir(self), internal.InitName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s not found at %s", ErrDive, internal.InitName, path)
	}
	return path, nil
}

// Copies the init binary into a cache slot keyed by its content digest and
// returns the slot path. An existing slot is reused as-is.
func cacheInit(source string) (string, error) {
	fh, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrDive, source, err)
	}
	defer fh.Close()

	dgst, err := digest.FromReader(fh)
	if err != nil {
		return "", fmt.Errorf("%w: digesting %s: %v", ErrDive, source, err)
	}

	slot := filepath.Join(paths.Cache(), "init", dgst.Encoded())
	if _, err := os.Stat(slot); err == nil {
		return slot, nil
	}

	if err := os.MkdirAll(filepath.Dir(slot), paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: creating cache directory: %v", ErrDive, err)
	}
	if err := copyFile(source, slot, paths.ExecFileMode); err != nil {
		return "", fmt.Errorf("%w: caching %s: %v", ErrDive, internal.InitName, err)
	}
	return slot, nil
}

// Copies src to dest atomically via a temp file in dest's directory.
func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}
