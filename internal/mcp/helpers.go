package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"pagebuilder/internal/domain"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// stringArg returns a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// intArg reads a JSON number argument. ok is false when it is absent.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// splitList splits a comma-separated argument, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// componentArg decodes a component given as a JSON object string.
func componentArg(args map[string]any, key string) (*domain.Component, error) {
	raw, err := stringArg(args, key)
	if err != nil {
		return nil, err
	}
	var c domain.Component
	if err := parseJSON(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return &c, nil
}

// treeArg decodes an optional component array given as a JSON string.
func treeArg(args map[string]any, key string) (domain.Tree, error) {
	raw, _ := args[key].(string)
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseTree([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, nil
}
