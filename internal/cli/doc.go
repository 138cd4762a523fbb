// Parses flags and drives a containerized build for the caisson CLI.
//
// The CLI accepts the following flags:
//
//	-q, --quiet        Suppress informational output.
//	-v, --verbose      Enable verbose output.
//	-d, --debug        Enable debug output.
//	-r, --root         Run as root inside the container.
//	    --image        Override the image from .caisson.yml.
//	    --shell        Override the script shell.
//	    --entrypoint   Override the container entrypoint.
//	-e, --env          Pass an environment variable into the container.
//	-D, --docker-arg   Pass a raw argument through to docker run.
//	-n, --dry-run      Print the docker command line instead of running it.
//	    --list-aliases List the aliases defined in .caisson.yml.
//
// Everything after the flags is the command (or alias) to run. Flags
// override build-time defaults set via linker flags; after parsing, the
// global logger is reconfigured to reflect the final level before the dive
// starts.
package cli
