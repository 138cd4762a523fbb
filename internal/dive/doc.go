// Package dive assembles and runs a single containerized build.
//
// A dive takes the resolved run context from the config package and turns it
// into a docker run invocation: the project top is bind-mounted at the same
// path inside the container, a per-invocation directory is mounted at
// /.caisson holding the caisson-init helper plus generated command and hook
// scripts, and the container entrypoint is pointed at the helper. The
// caller's identity is handed to the helper through CAISSON_INIT_*
// environment variables so the build runs with matching uid/gid even though
// docker starts the container as root.
//
// The configured entrypoint (or, when none is configured, the one recorded
// in the image) is emulated by prepending it to the command vector, since
// docker's --entrypoint slot is taken by the helper.
package dive
