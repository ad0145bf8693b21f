// Package config provides read-only, hierarchical application settings.
//
// Settings are addressed with colon-separated paths such as
// "Cache:CachePage:Used". Path segments match YAML mapping keys
// case-insensitively. Scalar lookups can be overridden from the environment
// by replacing ':' with "__" and upper-casing the path:
//
//	Cache:CachePage:Used  ->  CACHE__CACHEPAGE__USED
//
// Every typed getter takes a default that is returned when the key is
// missing or its value cannot be parsed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LookupEnvFunc matches the signature of os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// Settings is an immutable settings tree.
type Settings struct {
	root      *yaml.Node
	lookupEnv LookupEnvFunc
}

// Empty returns settings without any values. All getters return their defaults.
func Empty() *Settings {
	return &Settings{}
}

// FromYAML parses settings from YAML bytes. Environment overrides are not
// applied; use WithEnv for that.
func FromYAML(data []byte) (*Settings, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	s := &Settings{}
	if len(doc.Content) > 0 {
		s.root = doc.Content[0]
	}
	return s, nil
}

// Load reads a YAML settings file and applies environment overrides from
// the process environment. An empty path yields environment-only settings.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Empty().WithEnv(os.LookupEnv), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	s, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	return s.WithEnv(os.LookupEnv), nil
}

// WithEnv returns a copy of s whose scalar lookups consult lookup first.
func (s *Settings) WithEnv(lookup LookupEnvFunc) *Settings {
	return &Settings{root: s.root, lookupEnv: lookup}
}

// EnvName returns the environment variable name that overrides key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ":", "__"))
}

// Lookup returns the raw scalar value for key.
func (s *Settings) Lookup(key string) (string, bool) {
	if s.lookupEnv != nil {
		if v, ok := s.lookupEnv(EnvName(key)); ok {
			return v, true
		}
	}

	node := s.node(key)
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", false
	}
	if node.Tag == "!!null" {
		return "", false
	}
	return node.Value, true
}

// Has reports whether key exists, as a scalar or as a section.
func (s *Settings) Has(key string) bool {
	if _, ok := s.Lookup(key); ok {
		return true
	}
	return s.node(key) != nil
}

// String returns the value for key or def.
func (s *Settings) String(key, def string) string {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Bool returns the boolean value for key or def.
func (s *Settings) Bool(key string, def bool) bool {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Int returns the integer value for key or def.
func (s *Settings) Int(key string, def int) int {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Duration returns the duration value for key or def. Values use
// time.ParseDuration syntax ("5s", "250ms").
func (s *Settings) Duration(key string, def time.Duration) time.Duration {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// Decode decodes the section at key into out. It reports false when the
// section does not exist. Environment overrides do not apply to sections.
func (s *Settings) Decode(key string, out any) (bool, error) {
	node := s.node(key)
	if node == nil {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Settings) node(key string) *yaml.Node {
	node := s.root
	if node == nil {
		return nil
	}
	if key == "" {
		return node
	}

	for _, segment := range strings.Split(key, ":") {
		node = child(node, segment)
		if node == nil {
			return nil
		}
	}
	return node
}

// child finds the value node for name in a mapping node. Mapping content
// alternates key and value nodes.
func child(node *yaml.Node, name string) *yaml.Node {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if strings.EqualFold(node.Content[i].Value, name) {
			return node.Content[i+1]
		}
	}
	return nil
}
