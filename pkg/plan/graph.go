package plan

import (
	"slices"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// graph holds "from depends on to" edges.
type graph struct {
	nodes []entity.Type
	deps  map[entity.Type]map[entity.Type]struct{}
}

func newGraph(types []entity.Type) *graph {
	res := graph{
		nodes: slices.Clone(types),
		deps:  make(map[entity.Type]map[entity.Type]struct{}, len(types)),
	}
	slices.Sort(res.nodes)
	res.nodes = slices.Compact(res.nodes)
	for _, v := range res.nodes {
		res.deps[v] = make(map[entity.Type]struct{})
	}
	return &res
}

func (g *graph) add(from, to entity.Type) {
	g.deps[from][to] = struct{}{}
}

// reachable tells if there is a dependency path from a to b.
func (g *graph) reachable(a, b entity.Type) bool {
	seen := map[entity.Type]struct{}{}
	stack := []entity.Type{a}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == b {
			return true
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		for d := range g.deps[n] {
			stack = append(stack, d)
		}
	}
	return false
}

// layers applies Kahn's algorithm level by level. The graph is acyclic
// by construction.
func (g *graph) layers() []Stage {
	pending := make(map[entity.Type]int, len(g.nodes))
	for _, n := range g.nodes {
		pending[n] = len(g.deps[n])
	}

	var res []Stage
	done := map[entity.Type]struct{}{}
	for len(done) < len(g.nodes) {
		var layer []entity.Type
		for _, n := range g.nodes {
			if _, ok := done[n]; ok {
				continue
			}
			if pending[n] == 0 {
				layer = append(layer, n)
			}
		}
		if len(layer) == 0 {
			break
		}
		for _, n := range layer {
			done[n] = struct{}{}
			for _, m := range g.nodes {
				if _, ok := g.deps[m][n]; ok {
					pending[m]--
				}
			}
		}
		res = append(res, Stage{Index: len(res), Types: layer})
	}
	return res
}
