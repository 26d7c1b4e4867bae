// Package buildgraph implements the graph loader / validator (C2) and the
// provider index (C3) from spec.md §4.2 and §4.3: it ingests declarations
// from either front-end (internal/declfile or internal/register), resolves
// name references into target handles, validates the depends and provides
// relations are acyclic, and computes the direct/transitive provider index
// the resolver queries.
package buildgraph

import (
	"sort"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/pluginhook"
	"github.com/ybld-dev/ybld/internal/target"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Builder accumulates declarations before they are finalized into a Graph.
// It is created fresh per run; unlike the system this design is drawn from,
// there is no process-wide singleton index to accidentally leak state
// across runs (spec.md §9, "Global target index and global
// configuration").
type Builder struct {
	targets map[string]*target.Target
	order   []string // insertion order, for deterministic JSON/list output
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{targets: make(map[string]*target.Target)}
}

// Add registers t. If a target with the same name already exists, it is
// overwritten (declarations loaded later win, matching the "last write"
// behavior of both front-ends in spec.md §6.1).
func (b *Builder) Add(t *target.Target) {
	if _, exists := b.targets[t.Name]; !exists {
		b.order = append(b.order, t.Name)
	}
	b.targets[t.Name] = t
}

// Get returns the target registered under name, if any.
func (b *Builder) Get(name string) (*target.Target, bool) {
	t, ok := b.targets[name]
	return t, ok
}

// Names returns all registered target names in registration order.
func (b *Builder) Names() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Graph is a validated, finalized declaration graph: every name reference
// has been resolved to a target handle, depends/provides are acyclic, and
// the provider index has been computed.
type Graph struct {
	targets map[string]*target.Target
	order   []string

	directProviders map[*target.Target][]*target.Target
	fullProviders   map[*target.Target]map[*target.Target]bool

	essentials      []*target.Target
	essentialFamily map[*target.Target]*target.Target
}

// Targets returns every target in the graph, in registration order.
func (g *Graph) Targets() []*target.Target {
	out := make([]*target.Target, len(g.order))
	for i, name := range g.order {
		out[i] = g.targets[name]
	}
	return out
}

// Get returns the target registered under name, if any.
func (g *Graph) Get(name string) (*target.Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Essentials returns every target marked essential=true.
func (g *Graph) Essentials() []*target.Target {
	return g.essentials
}

// EssentialFamily returns the "family head" of an essential: the essential
// it ultimately provides, following chains of essentials providing
// other essentials (see SPEC_FULL.md §5). For an essential that provides no
// other essential, EssentialFamily returns the essential itself.
func (g *Graph) EssentialFamily(e *target.Target) *target.Target {
	if head, ok := g.essentialFamily[e]; ok {
		return head
	}
	return e
}

// DirectProviders returns the targets whose Provides list directly names t
// (C3's direct_providers[t]).
func (g *Graph) DirectProviders(t *target.Target) []*target.Target {
	return g.directProviders[t]
}

// FullProviders returns the transitive closure of DirectProviders (C3's
// full_providers[t]): every target that provides t, directly or through a
// chain of provides.
func (g *Graph) FullProviders(t *target.Target) map[*target.Target]bool {
	return g.fullProviders[t]
}

// node wraps a *target.Target for use as a gonum graph.Node.
type node struct {
	id int64
	t  *target.Target
}

func (n *node) ID() int64 { return n.id }

// Finalize validates b's declarations and produces a Graph.
//
// hooks.Initialize is invoked before name resolution (spec.md §6.2:
// "called after declarations are parsed but before finalize"); any targets
// it returns are registered first. hooks.Finalize is invoked after name
// resolution, for cross-target patching of non-structural fields.
func Finalize(b *Builder, hooks pluginhook.Hooks) (*Graph, error) {
	if hooks == nil {
		hooks = pluginhook.NoOp{}
	}

	extra, err := hooks.Initialize(b)
	if err != nil {
		return nil, &ybld.PluginReject{Hook: "plugin_initialize", Reason: err.Error()}
	}
	for name, t := range extra {
		t.Name = name
		b.Add(t)
	}

	g := &Graph{
		targets:         make(map[string]*target.Target, len(b.targets)),
		order:           append([]string(nil), b.order...),
		directProviders: make(map[*target.Target][]*target.Target),
		fullProviders:   make(map[*target.Target]map[*target.Target]bool),
		essentialFamily: make(map[*target.Target]*target.Target),
	}
	for name, t := range b.targets {
		g.targets[name] = t
		if t.Essential {
			g.essentials = append(g.essentials, t)
		}
	}
	sort.Slice(g.essentials, func(i, j int) bool { return g.essentials[i].Name < g.essentials[j].Name })

	// Resolve name references to handles.
	for _, t := range g.targets {
		deps, err := g.resolveNames(t, "depends", t.DependsNames)
		if err != nil {
			return nil, err
		}
		t.Depends = deps

		provs, err := g.resolveNames(t, "provides", t.ProvidesNames)
		if err != nil {
			return nil, err
		}
		t.Provides = provs
	}

	if err := g.validate(); err != nil {
		return nil, err
	}

	g.buildProviderIndex()
	g.buildEssentialFamilies()

	if err := hooks.FinalizeGraph(g); err != nil {
		return nil, &ybld.PluginReject{Hook: "plugin_finalize", Reason: err.Error()}
	}

	return g, nil
}

func (g *Graph) resolveNames(t *target.Target, field string, names []string) ([]*target.Target, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]*target.Target, 0, len(names))
	for _, n := range names {
		ref, ok := g.targets[n]
		if !ok {
			return nil, &ybld.UnresolvedReference{Target: t.Name, Reference: n, Field: field}
		}
		if field == "depends" && ref == t {
			return nil, &ybld.SelfDependency{Target: t.Name}
		}
		out = append(out, ref)
	}
	return out, nil
}

// validate checks the invariants of spec.md §3: unique names (guaranteed by
// map construction), no self-dependency (checked in resolveNames), no
// target lists more than one essential in its depends, and both depends and
// provides are DAGs.
func (g *Graph) validate() error {
	for _, t := range g.targets {
		var essentials []string
		for _, d := range t.Depends {
			if d.Essential {
				essentials = append(essentials, d.Name)
			}
		}
		if len(essentials) > 1 {
			sort.Strings(essentials)
			return &ybld.MultipleEssentials{Target: t.Name, Essentials: essentials}
		}
	}

	if cycle := g.findCycle(func(t *target.Target) []*target.Target { return t.Depends }); cycle != nil {
		return &ybld.CyclicDependency{Cycle: cycle}
	}
	if cycle := g.findCycle(func(t *target.Target) []*target.Target { return t.Provides }); cycle != nil {
		return &ybld.CyclicProvide{Cycle: cycle}
	}
	return nil
}

// findCycle builds a directed graph over g.targets using edges(t) as the
// out-edges of t, and returns the names of one cyclic component if the
// graph is not a DAG, or nil if it is acyclic. This mirrors the
// topo.Sort/topo.Unorderable cycle-breaking pattern in distri's
// internal/batch/batch.go, generalized from "package depends on package" to
// an arbitrary edge function so it serves both the depends and the
// provides relation.
func (g *Graph) findCycle(edges func(*target.Target) []*target.Target) []string {
	dg := simple.NewDirectedGraph()
	nodes := make(map[*target.Target]*node, len(g.targets))
	var id int64
	for _, name := range g.order {
		t := g.targets[name]
		n := &node{id: id, t: t}
		id++
		nodes[t] = n
		dg.AddNode(n)
	}
	for _, name := range g.order {
		t := g.targets[name]
		from := nodes[t]
		for _, d := range edges(t) {
			to, ok := nodes[d]
			if !ok {
				continue
			}
			if to == from {
				// simple.DirectedGraph cannot hold a self-edge; a target
				// naming itself is a one-member cycle.
				return []string{t.Name}
			}
			dg.SetEdge(dg.NewEdge(from, to))
		}
	}

	if _, err := topo.Sort(dg); err == nil {
		return nil
	}

	sccs := topo.TarjanSCC(dg)
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		names := make([]string, 0, len(scc))
		for _, n := range scc {
			names = append(names, n.(*node).t.Name)
		}
		sort.Strings(names)
		return names
	}
	// Defensive: topo.Sort reported unorderable but no multi-node SCC was
	// found. Self-edges never reach dg (they are returned above), so this
	// is not expected; return an empty, non-nil cycle so the caller still
	// fails closed rather than silently accepting a broken graph.
	return []string{}
}

// buildProviderIndex computes direct_providers and full_providers (C3).
func (g *Graph) buildProviderIndex() {
	for _, t := range g.targets {
		for _, p := range t.Provides {
			g.directProviders[p] = append(g.directProviders[p], t)
		}
	}
	for p := range g.directProviders {
		sort.Slice(g.directProviders[p], func(i, j int) bool {
			return g.directProviders[p][i].Name < g.directProviders[p][j].Name
		})
	}

	for _, t := range g.targets {
		full := make(map[*target.Target]bool)
		frontier := append([]*target.Target(nil), g.directProviders[t]...)
		for len(frontier) > 0 {
			var next []*target.Target
			for _, p := range frontier {
				if full[p] {
					continue
				}
				full[p] = true
				next = append(next, g.directProviders[p]...)
			}
			frontier = next
		}
		g.fullProviders[t] = full
	}
}

// buildEssentialFamilies computes, for each essential, the essential it
// ultimately provides, following its Provides through other essentials
// (see SPEC_FULL.md §5).
func (g *Graph) buildEssentialFamilies() {
	essentialSet := make(map[*target.Target]bool, len(g.essentials))
	for _, e := range g.essentials {
		essentialSet[e] = true
	}
	for _, e := range g.essentials {
		head := e
		seen := map[*target.Target]bool{head: true}
		for {
			var next *target.Target
			for _, p := range head.Provides {
				if essentialSet[p] {
					next = p
					break
				}
			}
			if next == nil || seen[next] {
				break
			}
			head = next
			seen[head] = true
		}
		g.essentialFamily[e] = head
	}
}

var _ graph.Node = (*node)(nil)
