// Package config finds, parses, and resolves .caisson.yml files.
//
// A .caisson.yml names the image a project builds in and, optionally, a
// default shell, an entrypoint override, environment variables, root/user
// hook scripts, and command aliases. The file is discovered by walking up
// from the working directory; the directory containing it becomes the top of
// the project bind mount.
//
// Values support the !from_yaml tag, which pulls a scalar out of an external
// YAML document so image references can be shared with other tooling (e.g. a
// CI pipeline definition):
//
//	image: !from_yaml .gitlab-ci.yml image
//
// [Config.ProcessCommand] resolves a command line against the alias table
// and produces the effective [Context] for a single run.
package config
