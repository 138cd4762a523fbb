package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default shell used for scripts and hooks when none is configured.
const DefaultShell = "/bin/sh"

// A parsed .caisson.yml.
type Config struct {
	Image       string            // Default image to run builds in.
	Shell       string            // Shell for scripts; defaults to /bin/sh.
	Entrypoint  *string           // Entrypoint override: nil means use the image's, "" means none.
	Environment map[string]string // Variables passed into the container.
	Hooks       Hooks             // Scripts run by caisson-init around the privilege drop.
	Aliases     map[string]Alias  // Named commands.
}

// Hook scripts from the hooks node.
type Hooks struct {
	Root []string // Runs as root, before the privilege drop.
	User []string // Runs as the build user, before the command.
}

// A named command from the aliases node.
//
// The simple form is just a script; the rich form can override the image,
// entrypoint, environment, shell, and root mode for runs of this alias.
type Alias struct {
	Name        string
	Script      []string
	Image       string
	Entrypoint  *string
	Environment map[string]string
	Shell       string
	Root        bool
}

// Top-level keys accepted in .caisson.yml.
var topLevelKeys = map[string]bool{
	"image":       true,
	"shell":       true,
	"entrypoint":  true,
	"environment": true,
	"hooks":       true,
	"aliases":     true,
}

// Parses the file at path.
//
// An empty file yields an empty configuration; a missing image is only an
// error once a run actually needs one (the CLI may override it).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrConfig, path, err)
	}
	return parse(data, path)
}

// Parses configuration data. The path is used to resolve !from_yaml
// references and in error messages.
func parse(data []byte, path string) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", ErrConfig, path, err)
	}

	cfg := &Config{
		Shell:       DefaultShell,
		Environment: map[string]string{},
		Aliases:     map[string]Alias{},
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return cfg, nil
	}

	doc := root.Content[0]
	if err := newResolver(path).expand(doc); err != nil {
		return nil, err
	}

	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrConfig, path)
	}

	var extra []string
	for i := 0; i < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		if !topLevelKeys[key.Value] {
			extra = append(extra, key.Value)
			continue
		}
		if err := cfg.applyNode(key.Value, value); err != nil {
			return nil, err
		}
	}

	if len(extra) > 0 {
		return nil, fmt.Errorf("%w: %s: unrecognized node(s): %s",
			ErrConfig, path, strings.Join(extra, ", "))
	}

	return cfg, nil
}

// Applies one recognized top-level node.
func (c *Config) applyNode(key string, node *yaml.Node) error {
	switch key {
	case "image":
		s, err := scalarString(node, "image")
		if err != nil {
			return err
		}
		c.Image = s

	case "shell":
		s, err := scalarString(node, "shell")
		if err != nil {
			return err
		}
		c.Shell = s

	case "entrypoint":
		ep, err := entrypointString(node, "entrypoint")
		if err != nil {
			return err
		}
		c.Entrypoint = ep

	case "environment":
		env, err := decodeEnvironment(node, "environment")
		if err != nil {
			return err
		}
		c.Environment = env

	case "hooks":
		return c.applyHooks(node)

	case "aliases":
		return c.applyAliases(node)
	}
	return nil
}

// Reads the root and user hook scripts. Other keys under hooks are ignored.
func (c *Config) applyHooks(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: hooks must be a mapping", ErrConfig)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "root":
			script, err := decodeScript(value, "hooks.root")
			if err != nil {
				return err
			}
			c.Hooks.Root = script
		case "user":
			script, err := decodeScript(value, "hooks.user")
			if err != nil {
				return err
			}
			c.Hooks.User = script
		}
	}
	return nil
}

// Reads the alias table.
func (c *Config) applyAliases(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: aliases must be a mapping", ErrConfig)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if strings.Contains(key.Value, " ") {
			return fmt.Errorf("%w: alias names cannot contain spaces", ErrConfig)
		}
		alias, err := decodeAlias(key.Value, value)
		if err != nil {
			return err
		}
		c.Aliases[key.Value] = alias
	}
	return nil
}

// Decodes a simple or rich alias node.
func decodeAlias(name string, node *yaml.Node) (Alias, error) {
	alias := Alias{Name: name}

	script, err := decodeScript(node, name)
	if err != nil {
		return alias, err
	}
	alias.Script = script

	if node.Kind != yaml.MappingNode {
		return alias, nil
	}

	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "image":
			if alias.Image, err = scalarString(value, name+".image"); err != nil {
				return alias, err
			}
		case "entrypoint":
			if alias.Entrypoint, err = entrypointString(value, name+".entrypoint"); err != nil {
				return alias, err
			}
		case "environment":
			if alias.Environment, err = decodeEnvironment(value, name+".environment"); err != nil {
				return alias, err
			}
		case "shell":
			if alias.Shell, err = scalarString(value, name+".shell"); err != nil {
				return alias, err
			}
		case "root":
			var root bool
			if err := value.Decode(&root); err != nil {
				return alias, fmt.Errorf("%w: %s.root must be a boolean", ErrConfig, name)
			}
			alias.Root = root
		}
	}

	return alias, nil
}

// Decodes a script node: either a plain string, or a mapping with a script
// subkey holding a string or a list of strings.
func decodeScript(node *yaml.Node, name string) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		s, err := scalarString(node, name)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			if node.Content[i].Value != "script" {
				continue
			}
			return decodeScriptValue(node.Content[i+1], name)
		}
		return nil, fmt.Errorf("%w: %s: must have a 'script' subkey", ErrConfig, name)
	}

	return nil, fmt.Errorf("%w: %s: must be a string or mapping", ErrConfig, name)
}

// Decodes the value of a script subkey.
func decodeScriptValue(node *yaml.Node, name string) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			break
		}
		return []string{node.Value}, nil

	case yaml.SequenceNode:
		lines := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			s, err := scalarString(item, name+".script")
			if err != nil {
				return nil, err
			}
			lines = append(lines, s)
		}
		if len(lines) == 0 {
			break
		}
		return lines, nil
	}

	return nil, fmt.Errorf("%w: %s.script: must be a string or list", ErrConfig, name)
}

// Decodes an environment node: a mapping (null values inherit the host
// value) or a list of KEY=VALUE strings (a bare KEY inherits the host
// value).
func decodeEnvironment(node *yaml.Node, name string) (map[string]string, error) {
	env := map[string]string{}

	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return env, nil
		}

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
				env[key.Value] = os.Getenv(key.Value)
				continue
			}
			s, err := scalarString(value, name+"."+key.Value)
			if err != nil {
				return nil, err
			}
			env[key.Value] = s
		}
		return env, nil

	case yaml.SequenceNode:
		for _, item := range node.Content {
			entry, err := scalarString(item, name)
			if err != nil {
				return nil, err
			}
			key, value, found := strings.Cut(entry, "=")
			if key == "" {
				return nil, fmt.Errorf("%w: %s: empty variable name in %q", ErrConfig, name, entry)
			}
			if !found {
				value = os.Getenv(key)
			}
			env[key] = value
		}
		return env, nil
	}

	return nil, fmt.Errorf("%w: '%s' must be a list or mapping", ErrConfig, name)
}

// Decodes a tri-state entrypoint: an explicit null becomes the empty string
// (disable the entrypoint), which is distinct from the key being absent (nil,
// use the image's).
func entrypointString(node *yaml.Node, name string) (*string, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		empty := ""
		return &empty, nil
	}
	s, err := scalarString(node, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Returns the string value of a scalar node.
func scalarString(node *yaml.Node, name string) (string, error) {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return "", fmt.Errorf("%w: '%s' must be a string", ErrConfig, name)
	}
	return node.Value, nil
}
