//go:build linux

package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	msignal "github.com/moby/sys/signal"
	"golang.org/x/sys/unix"
)

// Tracks the primary child's recorded exit status during the reap loop.
type exitState struct {
	code     int  // Pending supervisor exit code.
	recorded bool // Whether the primary child has been reaped.
}

// Starts cmd as the primary child and supervises it until exit.
//
// The child is placed in its own process group so that forwarded signals
// reach every process of the build job. Returns the exit code the container
// should report: the primary child's own status, or 128+signal when the
// child was killed by a signal. Statuses of other reaped children are
// discarded; reaping them only prevents zombies.
//
// Returns [ErrFork] when the child cannot be started at all.
func Run(cmd *exec.Cmd) (int, error) {
	// Register for signals before forking so a child that exits immediately
	// cannot race the SIGCHLD handler.
	sigc := make(chan os.Signal, 128)
	msignal.CatchAll(sigc)
	defer msignal.StopCatch(sigc)

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFork, err)
	}

	primary := cmd.Process.Pid
	slog.Debug("primary child started", "pid", primary)

	state := &exitState{}
	for sig := range sigc {
		unixSig, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}

		switch unixSig {
		case unix.SIGCHLD:
			if reap(primary, state) {
				return state.code, nil
			}
		case unix.SIGURG:
			// Used internally by the Go runtime; not a real request.
		default:
			forward(primary, unixSig)
		}
	}

	return state.code, nil
}

// Collects every reapable child without blocking.
//
// The set of reapable children is not known in advance: orphaned
// grandchildren reparent to PID 1 at arbitrary times, so the loop waits on
// any child rather than tracking pids. The primary child's status is
// recorded; everything else is discarded.
//
// Returns true once the primary child has been reaped and no further
// children are reapable in this pass. Children that are still running at
// that point are abandoned to the container teardown, which prevents the
// supervisor from outliving the build on behalf of stray daemons.
func reap(primary int, state *exitState) (done bool) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)

		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			// No children remain at all.
			return state.recorded
		case err != nil:
			slog.Warn("wait failed", "error", err)
			return state.recorded
		case pid == 0:
			// Children remain but none are reapable right now.
			return state.recorded
		}

		if pid == primary {
			state.code = exitCode(ws)
			state.recorded = true
			slog.Debug("primary child exited", "pid", pid, "code", state.code)
		} else {
			slog.Debug("reaped orphan", "pid", pid)
		}
	}
}

// Relays a signal to the primary child's process group.
//
// The supervisor does not exit on terminating signals; it keeps waiting so
// the child can shut down gracefully and its status can be collected.
func forward(primary int, sig syscall.Signal) {
	slog.Debug("forwarding signal", "signal", sig)
	if err := unix.Kill(-primary, sig); err != nil && err != unix.ESRCH {
		slog.Warn("signal forward failed", "signal", sig, "error", err)
	}
}

// Maps a wait status to the conventional shell exit code.
func exitCode(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}
