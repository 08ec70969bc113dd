package tree

import (
	"fmt"
	"regexp"
	"strings"

	"pagebuilder/internal/domain"
)

// Issue is one validation finding. Path is the chain of ids from the root
// to the offending node.
type Issue struct {
	Path    []string `json:"path"`
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
}

// ValidationError collects every issue found in a tree.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid tree: " + e.Issues[0].Message
	}
	return fmt.Sprintf("invalid tree: %s (and %d more)", e.Issues[0].Message, len(e.Issues)-1)
}

var sizeKeys = []string{
	"width", "widthDesktop", "widthTablet", "widthMobile",
	"height", "heightDesktop", "heightTablet", "heightMobile",
	"margin", "marginDesktop", "marginTablet", "marginMobile",
	"padding", "paddingDesktop", "paddingTablet", "paddingMobile",
}

var viewportUnit = regexp.MustCompile(`\b(100vw|100vh)\b`)

// Validate checks the structural invariants of t (unique non-empty ids,
// children only under container types) and the template rules: no absolute
// positioning at the root and no 100vw/100vh sizes. It returns nil or a
// *ValidationError.
func Validate(t domain.Tree) error {
	var issues []Issue
	seen := make(map[string]struct{})

	var walk func(list []*domain.Component, path []string)
	walk = func(list []*domain.Component, path []string) {
		for _, c := range list {
			if c == nil {
				issues = append(issues, Issue{Path: path, Message: "null component"})
				continue
			}
			p := append(append([]string(nil), path...), c.ID)
			switch {
			case c.ID == "":
				issues = append(issues, Issue{Path: p, Field: "id", Message: fmt.Sprintf("component of type %q has no id", c.Type)})
			default:
				if _, dup := seen[c.ID]; dup {
					issues = append(issues, Issue{Path: p, Field: "id", Message: fmt.Sprintf("duplicate id %q", c.ID)})
				}
				seen[c.ID] = struct{}{}
			}
			if c.Type == "" {
				issues = append(issues, Issue{Path: p, Field: "type", Message: fmt.Sprintf("component %q has no type", c.ID)})
			}
			for _, k := range sizeKeys {
				if s, ok := c.Props[k].(string); ok && viewportUnit.MatchString(strings.TrimSpace(s)) {
					issues = append(issues, Issue{Path: p, Field: k,
						Message: fmt.Sprintf("component %q uses disallowed viewport unit in %s", c.ID, k)})
					break
				}
			}

			switch c.Kind {
			case domain.KindContainer:
				if !domain.IsContainerType(c.Type) {
					issues = append(issues, Issue{Path: p, Field: "children",
						Message: fmt.Sprintf("type %q cannot hold children", c.Type)})
				}
				walk(c.Children, p)
			case domain.KindLeaf:
				if len(c.Children) > 0 {
					issues = append(issues, Issue{Path: p, Field: "children",
						Message: fmt.Sprintf("leaf %q carries children", c.ID)})
				}
			}
		}
	}

	for i, root := range t {
		if root != nil && root.Props["position"] == "absolute" {
			issues = append(issues, Issue{Path: []string{root.ID}, Field: "position",
				Message: fmt.Sprintf("root component %d (%s) must not use absolute positioning", i, root.Type)})
		}
	}
	walk(t, nil)

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
