package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser turns config file bytes into a nested key-value tree.
type Parser interface {
	Parse(data []byte) (map[string]any, error)
}

// ParserByName returns the parser registered under name ("yaml" or "minimal").
func ParserByName(name string) (Parser, error) {
	switch name {
	case "", "yaml":
		return YAMLParser{}, nil
	case "minimal":
		return MinimalParser{}, nil
	default:
		return nil, fmt.Errorf("config: unknown parser %q", name)
	}
}

// YAMLParser parses full YAML.
type YAMLParser struct{}

// Parse implements Parser.
func (YAMLParser) Parse(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MinimalParser reads the two-level subset of YAML the pipeline configs use:
//
//	key: scalar
//	section:
//	  key: scalar
//
// Blank lines and lines starting with # are skipped. Scalars are read as an
// integer, then a float, then a boolean, and otherwise kept as a string.
// Indented keys that follow a top-level scalar belong to no section and are
// ignored.
type MinimalParser struct{}

// Parse implements Parser.
func (MinimalParser) Parse(data []byte) (map[string]any, error) {
	out := map[string]any{}
	var section map[string]any
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"key: value\"", n+1)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		indent := len(line) - len(strings.TrimLeft(line, " "))
		if indent == 0 {
			if value == "" {
				section = map[string]any{}
				out[key] = section
			} else {
				out[key] = parseScalar(value)
				section = nil
			}
			continue
		}
		if section == nil {
			continue
		}
		section[key] = parseScalar(value)
	}
	return out, nil
}

func parseScalar(raw string) any {
	if isDigits(raw) {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
