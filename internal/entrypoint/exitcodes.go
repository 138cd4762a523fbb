package entrypoint

// Reserved exit codes for failures that occur before the build command runs.
//
// The build command's own exit status (including the 128+signal convention
// for signal deaths) passes through unchanged, so these values are chosen
// from ranges a build is unlikely to use. 126 and 127 follow the shell
// convention for exec failures. The caisson CLI translates these codes into
// specific messages.
const (
	ExitConflict      = 94  // Requested identity collides with a different existing entry.
	ExitProvision     = 95  // User/group database could not be read or written.
	ExitPrivilegeDrop = 96  // Identity-change syscall failed.
	ExitFork          = 97  // Primary child could not be started.
	ExitRequest       = 98  // Identity request or environment is malformed.
	ExitNotExecutable = 126 // Command found but not executable.
	ExitNotFound      = 127 // Command not found.
)
