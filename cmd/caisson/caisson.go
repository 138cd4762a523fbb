package main

import (
	"log/slog"
	"os"

	"github.com/cruciblehq/caisson/internal"
	"github.com/cruciblehq/caisson/internal/cli"
)

// The entry point for the caisson CLI.
//
// Initializes logging, displays startup information, and executes the root
// command. The exit code is the build command's own status, or one of the
// reserved setup-failure codes.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("caisson is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	os.Exit(cli.Execute())
}

// Creates a logger seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via cli.Execute.
func logger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})
	return slog.New(handler)
}

// Returns the log level derived from build-time linker flags.
func logLevel() slog.Level {
	if internal.IsDebug() {
		return slog.LevelDebug
	}
	if internal.IsQuiet() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
