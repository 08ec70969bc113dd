package tree

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// IDGenerator mints component ids. Ids are never reused within a session.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator mints time-ordered UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// SequenceGenerator mints prefix-1, prefix-2, ... and is handy wherever ids
// must be predictable.
type SequenceGenerator struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}

// Adopt prepares c for insertion into t: any node in c whose id is empty or
// already used in t (or earlier in c) gets a freshly minted id. c is
// returned as is when nothing collides.
func Adopt(t domain.Tree, c *domain.Component, gen IDGenerator) *domain.Component {
	if c == nil {
		return nil
	}
	taken := IDs(t)
	if !needsAdoption(c, taken, map[string]struct{}{}) {
		return c
	}
	return adopt(c, gen, taken)
}

func needsAdoption(c *domain.Component, taken, local map[string]struct{}) bool {
	if c.ID == "" {
		return true
	}
	if _, dup := taken[c.ID]; dup {
		return true
	}
	if _, dup := local[c.ID]; dup {
		return true
	}
	local[c.ID] = struct{}{}
	for _, child := range c.Children {
		if needsAdoption(child, taken, local) {
			return true
		}
	}
	return false
}

func adopt(c *domain.Component, gen IDGenerator, taken map[string]struct{}) *domain.Component {
	cp := *c
	if _, dup := taken[c.ID]; c.ID == "" || dup {
		cp.ID = uniqueID(gen, taken)
	} else {
		taken[c.ID] = struct{}{}
	}
	if c.IsContainer() {
		cp.Children = make([]*domain.Component, 0, len(c.Children))
		for _, child := range c.Children {
			cp.Children = append(cp.Children, adopt(child, gen, taken))
		}
	}
	return &cp
}

const maxIDAttempts = 16

// uniqueID asks gen for an id not already in taken and records it. A
// generator that keeps colliding is replaced by random UUIDs.
func uniqueID(gen IDGenerator, taken map[string]struct{}) string {
	if gen == nil {
		gen = UUIDGenerator{}
	}
	for i := 0; i < maxIDAttempts; i++ {
		id := gen.NewID()
		if _, dup := taken[id]; id != "" && !dup {
			taken[id] = struct{}{}
			return id
		}
	}
	for {
		id := uuid.New().String()
		if _, dup := taken[id]; !dup {
			taken[id] = struct{}{}
			return id
		}
	}
}
