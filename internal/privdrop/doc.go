// Package privdrop irreversibly lowers the process identity from root to a
// target uid/gid.
//
// The drop is a one-way transition. Group identity is established first
// (supplementary groups, then the real/effective/saved gid), because after
// the uid drop the process no longer has permission to change its own group
// memberships. The uid change uses the real+effective+saved form so the
// original root identity cannot be reacquired afterwards.
//
// Dropping must happen in the process that will exec the build command, not
// in the PID 1 supervisor, which keeps root for signal forwarding and
// reaping.
package privdrop
