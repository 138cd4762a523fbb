//go:build linux

package entrypoint

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/cruciblehq/caisson/internal/identity"
	"github.com/cruciblehq/caisson/internal/privdrop"
	"github.com/cruciblehq/caisson/internal/supervisor"
)

// Entry point for caisson-init. argv is the build command and its arguments
// (the process's own arguments, without argv[0]). Returns the process exit
// code.
func Main(argv []string) int {
	configureLogging()

	if os.Getenv(envStage) == stageChild {
		return runChild(argv)
	}
	return runRoot(argv)
}

// Installs a plain text handler on stderr.
//
// caisson-init writes into the container's output stream next to the build's
// own output, so it stays quiet unless verbose mode is requested.
func configureLogging() {
	level := slog.LevelWarn
	if os.Getenv(EnvVerbose) != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// The root stage: provision identity, run the root hook, then supervise the
// child stage as the container's init.
func runRoot(argv []string) int {
	if len(argv) == 0 {
		slog.Error("no command given")
		return ExitRequest
	}

	req, err := requestFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error(err.Error())
		return ExitRequest
	}

	if mask, ok, err := umaskFromEnv(os.LookupEnv); err != nil {
		slog.Error(err.Error())
		return ExitRequest
	} else if ok {
		// Inherited across fork and exec, so once is enough.
		unix.Umask(mask)
	}

	if req != nil {
		if err := identity.Provision(identity.DefaultStore(), *req); err != nil {
			slog.Error(err.Error())
			return provisionExitCode(err)
		}
	}

	if code := runHook(os.Getenv(EnvHookRoot), "root"); code != 0 {
		return code
	}

	return superviseChild(argv)
}

// Re-executes this binary as the child stage and supervises it.
func superviseChild(argv []string) int {
	self, err := os.Executable()
	if err != nil {
		// Always present inside a container with procfs mounted.
		self = "/proc/self/exe"
	}

	cmd := exec.Command(self, argv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), envStage+"="+stageChild)

	code, err := supervisor.Run(cmd)
	if err != nil {
		slog.Error(err.Error())
		return ExitFork
	}
	return code
}

// The child stage: drop privileges, run the user hook, and become the build
// command. Only returns on failure.
func runChild(argv []string) int {
	req, err := requestFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error(err.Error())
		return ExitRequest
	}

	if req != nil {
		if code := dropPrivileges(*req); code != 0 {
			return code
		}
	}

	if code := runHook(os.Getenv(EnvHookUser), "user"); code != 0 {
		return code
	}

	return execCommand(argv)
}

// Resolves supplementary groups and performs the identity transition.
func dropPrivileges(req identity.Request) int {
	supplementary, err := identity.DefaultStore().SupplementaryGIDs(req.Username)
	if err != nil {
		slog.Error(err.Error())
		return ExitPrivilegeDrop
	}

	err = privdrop.New().Drop(privdrop.Identity{
		UID:           req.UID,
		GID:           req.GID,
		Username:      req.Username,
		Home:          req.Home,
		Supplementary: supplementary,
	})
	if err != nil {
		slog.Error(err.Error())
		return ExitPrivilegeDrop
	}
	return 0
}

// Maps a provisioning failure to its reserved exit code.
func provisionExitCode(err error) int {
	switch {
	case errors.Is(err, identity.ErrConflict):
		return ExitConflict
	case errors.Is(err, identity.ErrRequest):
		return ExitRequest
	default:
		return ExitProvision
	}
}
