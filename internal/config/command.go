package config

import (
	"fmt"
	"strings"
)

// Everything a single run needs from the configuration after alias
// resolution and overrides.
type Context struct {
	Image       string            // Image to run in. Never empty.
	Script      []string          // Script lines to run; nil runs the image's default command.
	Shell       string            // Shell the script is fed to.
	Entrypoint  *string           // Entrypoint override; nil means use the image's.
	Environment map[string]string // Merged environment for the container.
	Hooks       Hooks             // Hook scripts staged into the container.
	AsRoot      bool              // Skip the privilege drop for this run.
}

// Resolves a command line against the configuration.
//
// If argv names an alias, the alias script runs; extra arguments are only
// allowed when the alias script is a single line, and are appended to it
// shell-quoted. Otherwise argv is quoted into a one-line script. An empty
// argv runs the image's default command.
//
// imageOverride and shellOverride come from the CLI and take precedence over
// both the alias and the top-level configuration.
func (c *Config) ProcessCommand(argv []string, imageOverride, shellOverride string) (*Context, error) {
	ctx := &Context{
		Image:       c.Image,
		Shell:       c.Shell,
		Entrypoint:  c.Entrypoint,
		Environment: map[string]string{},
		Hooks:       c.Hooks,
	}
	for key, value := range c.Environment {
		ctx.Environment[key] = value
	}

	if len(argv) > 0 {
		if alias, ok := c.Aliases[argv[0]]; ok {
			if err := ctx.applyAlias(alias, argv[1:]); err != nil {
				return nil, err
			}
		} else {
			ctx.Script = []string{shellJoin(argv)}
		}
	}

	if imageOverride != "" {
		ctx.Image = imageOverride
	}
	if shellOverride != "" {
		ctx.Shell = shellOverride
	}

	if ctx.Image == "" {
		return nil, fmt.Errorf("%w: no image specified in %s or on the command line",
			ErrConfig, FileName)
	}

	return ctx, nil
}

// Merges an alias into the run context.
func (ctx *Context) applyAlias(alias Alias, args []string) error {
	switch {
	case len(args) == 0:
		ctx.Script = alias.Script
	case len(alias.Script) > 1:
		return fmt.Errorf("%w: alias %q cannot take arguments: its script has multiple lines",
			ErrConfig, alias.Name)
	default:
		ctx.Script = []string{alias.Script[0] + " " + shellJoin(args)}
	}

	if alias.Image != "" {
		ctx.Image = alias.Image
	}
	if alias.Entrypoint != nil {
		ctx.Entrypoint = alias.Entrypoint
	}
	if alias.Shell != "" {
		ctx.Shell = alias.Shell
	}
	for key, value := range alias.Environment {
		ctx.Environment[key] = value
	}
	ctx.AsRoot = alias.Root

	return nil
}

// Joins arguments into one shell word sequence, quoting as needed.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// Quotes a string for safe use as a single word in a POSIX shell command.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\!#&*(){}[]|;<>?~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
