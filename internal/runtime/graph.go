package runtime

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/samber/lo"
)

// Graph holds the dependencies between the definitions of a series.
// To maps a name to its prerequisites and From maps a name to the names
// that list it as a prerequisite. Names keep declaration order.
type Graph struct {
	names []string
	From  map[string][]string
	To    map[string][]string
}

// NewGraph builds the dependency graph of defs. A prerequisite that is not
// one of defs fails with core.ErrUnknownDependency, a cycle with
// core.ErrCycleDetected.
func NewGraph(defs ...core.TestDefinition) (*Graph, error) {
	g := &Graph{
		From: make(map[string][]string, len(defs)),
		To:   make(map[string][]string, len(defs)),
	}
	for _, def := range defs {
		if _, ok := g.To[def.Name]; ok {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateTest, def.Name)
		}
		g.names = append(g.names, def.Name)
		g.To[def.Name] = lo.Uniq(def.DependsOn)
	}

	for _, name := range g.names {
		for _, dep := range g.To[name] {
			if _, ok := g.To[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", core.ErrUnknownDependency, name, dep)
			}
		}
	}

	// Reverse edges, scanning every definition's prerequisites per name.
	for _, name := range g.names {
		var dependents []string
		for _, other := range g.names {
			if slices.Contains(g.To[other], name) {
				dependents = append(dependents, other)
			}
		}
		g.From[name] = dependents
	}

	if cyclic := g.cyclicNames(); len(cyclic) > 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrCycleDetected, cyclic)
	}
	return g, nil
}

// Names returns all definition names in declaration order.
func (g *Graph) Names() []string {
	return slices.Clone(g.names)
}

// Prerequisites returns the names name depends on.
func (g *Graph) Prerequisites(name string) []string {
	return slices.Clone(g.To[name])
}

// Dependents returns the names that depend on name.
func (g *Graph) Dependents(name string) []string {
	return slices.Clone(g.From[name])
}

// Roots returns the names without prerequisites.
func (g *Graph) Roots() []string {
	return lo.Filter(g.names, func(name string, _ int) bool {
		return len(g.To[name]) == 0
	})
}

// Forward returns a copy of the name to prerequisites mapping.
func (g *Graph) Forward() map[string][]string {
	out := maps.Clone(g.To)
	for name, deps := range out {
		out[name] = slices.Clone(deps)
	}
	return out
}

// Levels groups the names in topological waves. Every name appears after
// all of its prerequisites.
func (g *Graph) Levels() [][]string {
	inDegrees := make(map[string]int, len(g.names))
	for _, name := range g.names {
		inDegrees[name] = len(g.To[name])
	}

	var levels [][]string
	wave := g.Roots()
	for len(wave) > 0 {
		levels = append(levels, wave)
		ready := map[string]bool{}
		for _, name := range wave {
			for _, dep := range g.From[name] {
				inDegrees[dep]--
				if inDegrees[dep] == 0 {
					ready[dep] = true
				}
			}
		}
		wave = lo.Filter(g.names, func(name string, _ int) bool { return ready[name] })
	}
	return levels
}

// cyclicNames runs Kahn's algorithm and returns the names that could not be
// ordered.
func (g *Graph) cyclicNames() []string {
	inDegrees := make(map[string]int, len(g.names))
	for _, name := range g.names {
		inDegrees[name] = len(g.To[name])
	}

	q := g.Roots()
	for len(q) > 0 {
		f := q[0]
		q = q[1:]
		for _, to := range g.From[f] {
			inDegrees[to]--
			if inDegrees[to] == 0 {
				q = append(q, to)
			}
		}
	}

	return lo.Filter(g.names, func(name string, _ int) bool {
		return inDegrees[name] > 0
	})
}
