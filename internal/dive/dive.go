package dive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path"
	"sort"
	"strconv"
	"strings"
	"syscall"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cruciblehq/caisson/internal"
	"github.com/cruciblehq/caisson/internal/config"
	"github.com/cruciblehq/caisson/internal/entrypoint"
)

// Environment variable announcing the project top path to the build.
const EnvRoot = "CAISSON_ROOT"

// Inputs for a single dive.
type Options struct {
	Context    *config.Context // Resolved run context. Required.
	Top        string          // Project top directory on the host. Required.
	Rel        string          // Working directory relative to Top ("." for the top itself).
	Env        []string        // Extra KEY=VALUE or KEY entries from the command line.
	DockerArgs []string        // Raw docker run arguments inserted before the image.
	Entrypoint *string         // Command-line entrypoint override; nil means not given.
	DryRun     bool            // Print the docker command instead of running it.
}

// Runs a build in a container and returns its exit code.
//
// The staging directory is created, populated, and removed again around the
// docker run; docker inherits this process's stdio, so interactive builds
// work transparently.
func Run(ctx context.Context, opts Options) (int, error) {
	if err := checkDockerHost(); err != nil {
		return 0, err
	}

	entry, command, err := commandVector(ctx, opts)
	if err != nil {
		return 0, err
	}

	dir, err := newDiveDir()
	if err != nil {
		return 0, err
	}
	defer dir.cleanup()

	args, err := assemble(opts, dir, entry, command)
	if err != nil {
		return 0, err
	}

	if opts.DryRun {
		printCommand(args)
		return 0, nil
	}

	slog.Debug("diving", "image", opts.Context.Image, "top", opts.Top)
	return runDocker(ctx, args)
}

// Rejects remote docker daemons. The dive depends on bind mounts of local
// directories, which only work against a daemon on this host.
func checkDockerHost() error {
	host := os.Getenv("DOCKER_HOST")
	if strings.HasPrefix(host, "tcp://") || strings.HasPrefix(host, "ssh://") {
		return fmt.Errorf("%w: DOCKER_HOST points at a remote daemon (%s); "+
			"local bind mounts are required", ErrDocker, host)
	}
	return nil
}

// Resolves the effective entrypoint and command vector for the run.
//
// The image is only inspected when something from it is actually needed:
// its entrypoint when neither the command line nor the configuration
// overrides it, and its default command when no script was given.
func commandVector(ctx context.Context, opts Options) (entry, command []string, err error) {
	run := opts.Context

	var override *string
	switch {
	case opts.Entrypoint != nil:
		override = opts.Entrypoint
	case run.Entrypoint != nil:
		override = run.Entrypoint
	}

	var image *ocispec.ImageConfig
	if override == nil || run.Script == nil {
		cfg, err := inspectImage(ctx, run.Image)
		if err != nil {
			return nil, nil, err
		}
		image = cfg
	}

	switch {
	case override != nil && *override != "":
		entry = []string{*override}
	case override == nil:
		entry = image.Entrypoint
	}

	if run.Script != nil {
		return entry, []string{run.Shell, mountPoint + "/" + commandScript}, nil
	}

	if len(image.Cmd) == 0 && len(entry) == 0 {
		return nil, nil, fmt.Errorf("%w: no command given and image %s has no default",
			ErrDive, run.Image)
	}
	return entry, image.Cmd, nil
}

// Populates the staging directory and builds the docker run argument list.
func assemble(opts Options, dir *diveDir, entry, command []string) ([]string, error) {
	run := opts.Context

	if err := dir.stageInit(); err != nil {
		return nil, err
	}
	if run.Script != nil {
		if err := dir.writeCommand(run.Script); err != nil {
			return nil, err
		}
	}

	args := []string{"run", "--rm", "--interactive"}
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		args = append(args, "--tty")
	}

	env, err := environment(opts, dir)
	if err != nil {
		return nil, err
	}
	args = append(args, env...)

	args = append(args,
		"--volume="+opts.Top+":"+opts.Top+":z",
		"--volume="+dir.path+":"+mountPoint+":z",
		"--workdir="+path.Join(opts.Top, opts.Rel),
		"--entrypoint="+dir.containerPath(internal.InitName),
	)

	args = append(args, opts.DockerArgs...)
	args = append(args, run.Image)
	args = append(args, entry...)
	args = append(args, command...)

	return args, nil
}

// Builds the --env arguments: configured variables first, then command-line
// overrides, then the CAISSON_ROOT announcement and the caisson-init
// contract.
func environment(opts Options, dir *diveDir) ([]string, error) {
	run := opts.Context

	keys := make([]string, 0, len(run.Environment))
	for key := range run.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var args []string
	for _, key := range keys {
		args = append(args, "--env="+key+"="+run.Environment[key])
	}

	for _, entry := range opts.Env {
		key, value, found := strings.Cut(entry, "=")
		if key == "" {
			return nil, fmt.Errorf("%w: invalid environment entry %q", ErrDive, entry)
		}
		if !found {
			value = os.Getenv(key)
		}
		args = append(args, "--env="+key+"="+value)
	}

	args = append(args, "--env="+EnvRoot+"="+opts.Top)

	contract, err := initContract(opts, dir)
	if err != nil {
		return nil, err
	}
	return append(args, contract...), nil
}

// Builds the CAISSON_INIT_* variables handed to the in-container helper.
func initContract(opts Options, dir *diveDir) ([]string, error) {
	var args []string

	if !opts.Context.AsRoot {
		args = append(args, callerIdentity()...)
	}

	args = append(args, "--env="+entrypoint.EnvUmask+"="+
		strconv.FormatInt(int64(currentUmask()), 8))

	if internal.IsDebug() {
		args = append(args, "--env="+entrypoint.EnvVerbose+"=1")
	}

	hooks := opts.Context.Hooks
	if len(hooks.Root) > 0 {
		if err := dir.writeHook(hookRootScript, opts.Context.Shell, hooks.Root); err != nil {
			return nil, err
		}
		args = append(args, "--env="+entrypoint.EnvHookRoot+"="+dir.containerPath(hookRootScript))
	}
	if len(hooks.User) > 0 {
		if err := dir.writeHook(hookUserScript, opts.Context.Shell, hooks.User); err != nil {
			return nil, err
		}
		args = append(args, "--env="+entrypoint.EnvHookUser+"="+dir.containerPath(hookUserScript))
	}

	return args, nil
}

// Describes the invoking user so the build runs under a matching identity
// inside the container.
func callerIdentity() []string {
	uid := os.Getuid()
	gid := os.Getgid()

	username := internal.Name
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	groupname := username
	if g, err := user.LookupGroupId(strconv.Itoa(gid)); err == nil && g.Name != "" {
		groupname = g.Name
	}

	return []string{
		"--env=" + entrypoint.EnvUID + "=" + strconv.Itoa(uid),
		"--env=" + entrypoint.EnvGID + "=" + strconv.Itoa(gid),
		"--env=" + entrypoint.EnvUser + "=" + username,
		"--env=" + entrypoint.EnvGroup + "=" + groupname,
	}
}

// Reads the process umask. There is no read-only accessor, so it is set and
// immediately restored.
func currentUmask() int {
	mask := syscall.Umask(0)
	syscall.Umask(mask)
	return mask
}

// Reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Prints the docker command line, quoted for copy-pasting into a shell.
func printCommand(args []string) {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, "docker")
	for _, arg := range args {
		quoted = append(quoted, config.ShellQuote(arg))
	}
	fmt.Println(strings.Join(quoted, " "))
}

// Runs docker with inherited stdio and returns the container exit code.
func runDocker(ctx context.Context, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return exit.ExitCode(), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrDocker, err)
}
