package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/caisson/internal"
)

// Represents the root command for the caisson CLI.
var RootCmd struct {
	Quiet   bool `short:"q" help:"Suppress informational output."`
	Verbose bool `short:"v" help:"Enable verbose output."`
	Debug   bool `short:"d" help:"Enable debug output."`

	Root        bool             `short:"r" help:"Run the command as root inside the container."`
	Image       string           `help:"Override the image from .caisson.yml." placeholder:"IMAGE"`
	Shell       string           `help:"Override the shell used to run scripts." placeholder:"PATH"`
	Entrypoint  *string          `help:"Override the container entrypoint; pass '' to disable it." placeholder:"PATH"`
	Env         []string         `short:"e" help:"Pass an environment variable into the container." placeholder:"KEY[=VALUE]"`
	DockerArg   []string         `short:"D" help:"Pass a raw argument through to docker run." placeholder:"ARG"`
	DryRun      bool             `short:"n" help:"Print the docker command line instead of running it."`
	ListAliases bool             `help:"List the aliases defined in .caisson.yml and exit."`
	Version     kong.VersionFlag `help:"Show version information."`

	Command []string `arg:"" optional:"" passthrough:"" help:"Command or alias to run in the container."`
}

// Parses arguments, configures logging, and runs the build. Returns the
// process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Runs build commands in transient containers.\n\n"+
			"The image and project settings come from a .caisson.yml found by "+
			"walking up from the current directory."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
	)

	configureLogger()

	return run(ctx)
}

// Configures the global logger based on CLI flags.
//
// The mode setters are updated as well so packages consulting them (e.g. the
// dive's verbose handoff to caisson-init) see the effective flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	internal.SetDebug(debug)
	internal.SetQuiet(quiet)
	internal.SetVerbose(verbose)

	level := slog.LevelInfo
	if debug || verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
