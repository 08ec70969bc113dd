package storage

import (
	"encoding/json"
	"fmt"
	"log"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

func encodeTree(t domain.Tree) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode components: %w", err)
	}
	return string(raw), nil
}

// decodeTree parses a stored tree. Structural problems are logged, not
// rejected, so a page saved by an older editor still opens.
func decodeTree(owner, raw string) (domain.Tree, error) {
	if raw == "" {
		return domain.Tree{}, nil
	}
	t, err := domain.ParseTree([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", owner, err)
	}
	if err := tree.Validate(t); err != nil {
		log.Printf("[storage] %s: %v", owner, err)
	}
	return t, nil
}

func encodeOverlay(o domain.Overlay) (string, error) {
	if o == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encode editor flags: %w", err)
	}
	return string(raw), nil
}

func decodeOverlay(owner, raw string) (domain.Overlay, error) {
	o := domain.Overlay{}
	if raw == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("%s editor flags: %w", owner, err)
	}
	if o == nil {
		o = domain.Overlay{}
	}
	return o, nil
}
