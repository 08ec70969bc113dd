package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"pagebuilder/internal/editor"
)

func parseAction(raw []byte, a *editor.Action) error {
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("parse action: %w", err)
	}
	if a.Type == "" {
		return fmt.Errorf("parse action: %w: missing type", editor.ErrInvalidAction)
	}
	return nil
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	return strings.Join(path, " > ")
}
