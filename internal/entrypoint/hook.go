package entrypoint

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
)

// Runs a hook script with inherited stdio.
//
// Hook scripts are generated by the caisson CLI from .caisson.yml, mounted
// into the container, and referenced by path in the environment. An empty
// path means the hook is not configured. A failing hook aborts the run with
// the hook's own exit status; returns 0 on success.
func runHook(path, name string) int {
	if path == "" {
		return 0
	}

	slog.Debug("running hook", "hook", name, "path", path)

	cmd := exec.Command(path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		slog.Error("hook failed", "hook", name, "code", exitErr.ExitCode())
		return exitErr.ExitCode()
	}

	slog.Error("hook could not be started", "hook", name, "path", path, "error", err)
	return ExitNotFound
}
