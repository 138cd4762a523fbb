// Package supervisor implements the minimal init duties of a container's
// PID 1.
//
// A container has no init system, so the first process inherits two kernel
// obligations: orphaned descendants reparent to it and must be reaped, and
// terminating signals arrive with no default handler installed. The
// supervisor starts the build command as its only direct child, then runs a
// single event loop over one signal channel: SIGCHLD triggers a reap pass
// over any child (not just the primary), and every other forwardable signal
// is relayed to the primary child's process group so the build can shut down
// gracefully before the container runtime escalates.
//
// The supervisor itself enforces no timers. Grace periods around container
// stop belong to the surrounding runtime; a second timeout here would race
// with it.
package supervisor
