// Package order implements the orderer (C6, spec.md §4.6): given the
// resolver's queue, it groups targets into dependency-depth layers so the
// scheduler can build each layer only after every layer it depends on has
// completed, and sorts within a layer by name for a deterministic build
// order.
package order

import (
	"sort"

	"github.com/ybld-dev/ybld/internal/target"
)

// Layers returns queue grouped into build layers: Layers()[0] holds every
// target with no concrete dependency inside queue, Layers()[1] holds
// targets whose concrete depends are satisfied once layer 0 completes, and
// so on. Abstract targets are dropped; they carry no action to run (spec.md
// §4.6: "the orderer only sequences concrete, actionable targets").
//
// This mirrors yamake's MakeBuildDependencyDepths: a dependency-depth map
// computed once per target, then grouped by depth and emitted
// shallowest-first.
func Layers(queue []*target.Target) [][]*target.Target {
	inQueue := make(map[*target.Target]bool, len(queue))
	for _, t := range queue {
		inQueue[t] = true
	}

	depth := make(map[*target.Target]int, len(queue))
	visiting := make(map[*target.Target]bool, len(queue))

	var depthOf func(t *target.Target) int
	depthOf = func(t *target.Target) int {
		if d, ok := depth[t]; ok {
			return d
		}
		if visiting[t] {
			// A cycle here would have already been rejected by
			// buildgraph.Finalize's validate pass; treat it as depth 0
			// defensively rather than recursing forever.
			return 0
		}
		visiting[t] = true
		max := -1
		for _, d := range t.Depends {
			if d.IsAbstract() || !inQueue[d] {
				continue
			}
			if dd := depthOf(d); dd > max {
				max = dd
			}
		}
		delete(visiting, t)
		result := max + 1
		depth[t] = result
		return result
	}

	maxDepth := -1
	for _, t := range queue {
		if t.IsAbstract() {
			continue
		}
		if d := depthOf(t); d > maxDepth {
			maxDepth = d
		}
	}
	if maxDepth < 0 {
		return nil
	}

	layers := make([][]*target.Target, maxDepth+1)
	for _, t := range queue {
		if t.IsAbstract() {
			continue
		}
		d := depth[t]
		layers[d] = append(layers[d], t)
	}
	for _, layer := range layers {
		sort.Slice(layer, func(i, j int) bool { return layer[i].Name < layer[j].Name })
	}
	return layers
}

// Flatten returns Layers(queue) concatenated into a single build-ordered
// slice, for callers that want a plain sequence instead of the layer
// structure.
func Flatten(queue []*target.Target) []*target.Target {
	layers := Layers(queue)
	var out []*target.Target
	for _, layer := range layers {
		out = append(out, layer...)
	}
	return out
}
