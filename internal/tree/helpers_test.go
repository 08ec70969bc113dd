package tree_test

import (
	"pagebuilder/internal/domain"
)

func leaf(id string) *domain.Component {
	return domain.NewLeaf(id, "Text", nil)
}

func section(id string, children ...*domain.Component) *domain.Component {
	return domain.NewContainer(id, "Section", nil, children...)
}

func ids(list []*domain.Component) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

// sample is
//
//	a(Section)
//	  b
//	  c
//	d(Section)
//	  e(Section)
//	    f
//	g
func sample() domain.Tree {
	return domain.Tree{
		section("a", leaf("b"), leaf("c")),
		section("d", section("e", leaf("f"))),
		leaf("g"),
	}
}
