package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Custom tag pulling a value out of an external YAML document.
const fromYamlTag = "!from_yaml"

// Resolves !from_yaml tags within one configuration load. External documents
// are parsed once and cached for the duration of the load.
type resolver struct {
	dir   string
	cache map[string]*yaml.Node
}

func newResolver(configPath string) *resolver {
	return &resolver{
		dir:   filepath.Dir(configPath),
		cache: map[string]*yaml.Node{},
	}
}

// Walks the tree and replaces every !from_yaml node with the referenced
// value.
func (r *resolver) expand(node *yaml.Node) error {
	if node.Tag == fromYamlTag {
		return r.resolve(node)
	}
	for _, child := range node.Content {
		if err := r.expand(child); err != nil {
			return err
		}
	}
	return nil
}

// Replaces node with the value the tag references. The node value has the
// form "FILE KEY", where KEY is a dot-separated path into FILE and literal
// dots in a path element are escaped as "\.".
func (r *resolver) resolve(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: %s requires a scalar argument", ErrConfig, fromYamlTag)
	}

	parts, err := splitQuoted(node.Value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfig, fromYamlTag, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s requires 2 arguments, got %q", ErrConfig, fromYamlTag, node.Value)
	}
	file, key := parts[0], parts[1]

	doc, err := r.document(file)
	if err != nil {
		return err
	}

	found, err := navigate(doc, key)
	if err != nil {
		return fmt.Errorf("%w: in %s: %v", ErrConfig, file, err)
	}

	*node = *found
	return r.expand(node)
}

// Parses and caches the external document.
func (r *resolver) document(file string) (*yaml.Node, error) {
	if doc, ok := r.cache[file]; ok {
		return doc, nil
	}

	data, err := os.ReadFile(filepath.Join(r.dir, file))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading %s: %v", ErrConfig, fromYamlTag, file, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: parsing %s: %v", ErrConfig, fromYamlTag, file, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: %s is empty", ErrConfig, fromYamlTag, file)
	}

	r.cache[file] = root.Content[0]
	return root.Content[0], nil
}

// Follows a dot-separated key path into a YAML tree.
func navigate(node *yaml.Node, key string) (*yaml.Node, error) {
	current := node
	for _, part := range splitKeyPath(key) {
		if current.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("no such key: %q", key)
		}
		var next *yaml.Node
		for i := 0; i < len(current.Content); i += 2 {
			if current.Content[i].Value == part {
				next = current.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("no such key: %q", key)
		}
		current = next
	}
	return current, nil
}

// Splits a key path on unescaped dots. "a.b\.c" yields ["a", "b.c"].
func splitKeyPath(key string) []string {
	var parts []string
	var current strings.Builder

	escaped := false
	for _, r := range key {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())
	return parts
}

// Splits a string on whitespace, honoring single and double quotes so file
// names with spaces can be referenced.
func splitQuoted(s string) ([]string, error) {
	var parts []string
	var current strings.Builder

	var quote rune
	inWord := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				parts = append(parts, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if inWord {
		parts = append(parts, current.String())
	}
	return parts, nil
}
