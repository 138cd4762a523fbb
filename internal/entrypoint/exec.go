//go:build linux

package entrypoint

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Replaces the process image with the build command.
//
// The command is resolved through PATH and exec'd with the prepared
// environment, minus the CAISSON_INIT_* contract variables. On success this
// function does not return. Failures report the shell-conventional reserved
// codes: 127 when the command cannot be found, 126 when it exists but cannot
// be executed.
func execCommand(argv []string) int {
	environ := stripEnviron(os.Environ())

	path, err := exec.LookPath(argv[0])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
			slog.Error("command not found", "command", argv[0])
			return ExitNotFound
		}
		slog.Error("command not executable", "command", argv[0], "error", err)
		return ExitNotExecutable
	}

	err = unix.Exec(path, argv, environ)

	// Exec only returns on failure.
	slog.Error("exec failed", "command", path, "error", err)
	if err == unix.ENOENT {
		return ExitNotFound
	}
	return ExitNotExecutable
}
