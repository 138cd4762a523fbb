// Package entrypoint implements caisson-init, the container entrypoint that
// prepares the build environment before the user's command runs.
//
// caisson-init is started by the container runtime as PID 1 with the build
// command as its arguments and the identity request in the environment (see
// the CAISSON_* variables in env.go; the caisson CLI is the producer). It
// runs in two stages:
//
// Root stage (PID 1): parses the identity request, provisions matching
// passwd/group entries, applies the requested umask, runs the root hook, and
// re-executes itself as the child stage. It then acts as the container's
// init: reaping orphans, forwarding signals to the child's process group,
// and finally exiting with the child's status.
//
// Child stage: still root on entry, it drops privileges to the requested
// identity, runs the user hook, strips the CAISSON_* variables from the
// environment, and replaces itself with the build command. Dropping in the
// child rather than in PID 1 keeps the supervisor privileged enough to
// signal the whole process group.
//
// When no identity is requested (root mode), provisioning and the privilege
// drop are skipped and the command runs as root.
//
// Failures before the build command starts map to reserved exit codes (see
// exitcodes.go) so callers can tell "build failed" from "environment setup
// failed".
package entrypoint
