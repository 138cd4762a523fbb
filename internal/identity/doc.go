// Package identity provisions user and group database entries inside a
// container.
//
// Build containers bind-mount the host project directory, so files created
// during a build must be owned by the host user. caisson-init therefore maps
// the host identity into the container before the build command runs: if the
// container's /etc/passwd and /etc/group have no entries for the requested
// uid/gid, matching entries are appended.
//
// All database access goes through [Store], a narrow read-then-append
// interface over the passwd and group files. Entries are parsed with
// github.com/moby/sys/user and appended as single formatted lines. Paths are
// injectable so tests run against temporary files.
//
// Provisioning is fail-closed: a pre-existing entry that matches the request
// is reused, but an entry that collides on uid, gid, or name with different
// attributes is reported as [ErrConflict] rather than overwritten. Entries
// baked into the base image may carry meaning the caller cannot see.
package identity
