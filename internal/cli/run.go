package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/cruciblehq/caisson/internal/config"
	"github.com/cruciblehq/caisson/internal/dive"
	"github.com/cruciblehq/caisson/internal/entrypoint"
)

// Exit code for configuration and setup failures, leaving the range below
// for build commands and the reserved caisson-init codes.
const exitError = 128

// Exit code when docker itself cannot be run.
const exitNoDocker = 2

// Executes the build described by the parsed flags and returns the exit
// code.
func run(ctx context.Context) int {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error(fmt.Sprintf("determining working directory: %v", err))
		return exitError
	}

	top, rel, cfg, err := config.Find(cwd)
	if err != nil {
		return fail(err)
	}
	slog.Debug("configuration found", "top", top, "rel", rel)

	if RootCmd.ListAliases {
		listAliases(cfg)
		return 0
	}

	runCtx, err := cfg.ProcessCommand(RootCmd.Command, RootCmd.Image, RootCmd.Shell)
	if err != nil {
		return fail(err)
	}
	if RootCmd.Root {
		runCtx.AsRoot = true
	}

	code, err := dive.Run(ctx, dive.Options{
		Context:    runCtx,
		Top:        top,
		Rel:        rel,
		Env:        RootCmd.Env,
		DockerArgs: RootCmd.DockerArg,
		Entrypoint: RootCmd.Entrypoint,
		DryRun:     RootCmd.DryRun,
	})
	if err != nil {
		return fail(err)
	}

	explain(code)
	return code
}

// Logs an error and maps it to an exit code.
func fail(err error) int {
	slog.Error(err.Error())
	if errors.Is(err, dive.ErrDocker) {
		return exitNoDocker
	}
	return exitError
}

// Messages for the exit codes reserved by caisson-init. Anything else is the
// build command's own status and passes through silently.
var reservedCodes = map[int]string{
	entrypoint.ExitConflict:      "the image's user database conflicts with the requested identity",
	entrypoint.ExitProvision:     "caisson-init could not provision the build identity",
	entrypoint.ExitPrivilegeDrop: "caisson-init could not drop privileges",
	entrypoint.ExitFork:          "caisson-init could not start the build command",
	entrypoint.ExitRequest:       "caisson-init rejected its environment contract",
	entrypoint.ExitNotExecutable: "the command was found but is not executable",
	entrypoint.ExitNotFound:      "the command was not found in the container",
}

// Surfaces a human-readable explanation for reserved exit codes.
func explain(code int) {
	if msg, ok := reservedCodes[code]; ok {
		slog.Error(msg, "code", code)
	}
}

// Prints the aliases defined in the configuration, one per line with the
// first script line as a summary.
func listAliases(cfg *config.Config) {
	names := make([]string, 0, len(cfg.Aliases))
	for name := range cfg.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range names {
		summary := ""
		if script := cfg.Aliases[name].Script; len(script) > 0 {
			summary = script[0]
			if len(script) > 1 {
				summary += " ..."
			}
		}
		fmt.Printf("%-*s  %s\n", width, name, strings.TrimSpace(summary))
	}
}
