// Package resolve implements the resolver (C5, spec.md §4.5) — the core of
// ybld: given a request set, it computes the closure of targets required to
// satisfy it, disambiguates abstract dependencies against the declared
// essentials, and yields either a concrete build set or a non-empty
// ambiguity set.
package resolve

import (
	"sort"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/pluginhook"
	"github.com/ybld-dev/ybld/internal/target"
)

type set map[*target.Target]bool

func (s set) add(t *target.Target) bool {
	if s[t] {
		return false
	}
	s[t] = true
	return true
}

func (s set) has(t *target.Target) bool { return s[t] }

func (s set) clone() set {
	out := make(set, len(s))
	for t := range s {
		out[t] = true
	}
	return out
}

func union(sets ...set) set {
	out := make(set)
	for _, s := range sets {
		for t := range s {
			out[t] = true
		}
	}
	return out
}

func sortedTargets(s set) []*target.Target {
	byName := make(map[string]*target.Target, len(s))
	for t := range s {
		byName[t.Name] = t
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*target.Target, len(names))
	for i, n := range names {
		out[i] = byName[n]
	}
	return out
}

// Result is the outcome of a successful resolve.
type Result struct {
	// Queue is the resolved set of concrete targets to build, in
	// deterministic (name-sorted) order. The orderer (C6) imposes the
	// final depends-before-dependent order; this field is not build
	// order.
	Queue []*target.Target

	// FullProvides is every capability (abstract or concrete) covered by
	// Queue, including Queue itself.
	FullProvides map[*target.Target]bool

	// Essentials is the set of essentials transitively required by the
	// request (chosen_essentials, spec.md §4.5.1).
	Essentials map[*target.Target]bool
}

// Resolve computes the build set needed to satisfy requestedNames against
// g. An empty requestedNames applies the default/any request rules of
// spec.md §4.5.2. hooks may be nil, equivalent to pluginhook.NoOp{}.
func Resolve(g *buildgraph.Graph, requestedNames []string, hooks pluginhook.Hooks) (*Result, error) {
	if hooks == nil {
		hooks = pluginhook.NoOp{}
	}

	r, err := requestSet(g, requestedNames)
	if err != nil {
		return nil, err
	}

	if ok := hooks.ChooseEssential(g, requestedNames); !ok {
		return nil, &ybld.PluginReject{Hook: "plugin_choose_essential"}
	}

	essentials := make(set)
	for _, e := range g.Essentials() {
		essentials.add(e)
	}
	essentialsUniverse := make(set)
	for _, e := range g.Essentials() {
		for _, p := range g.DirectProviders(e) {
			essentialsUniverse.add(p)
		}
	}
	abstracts := make(set)
	abstractDependsSet := make(set)
	for _, t := range g.Targets() {
		if t.IsAbstract() {
			abstracts.add(t)
		}
		for _, d := range t.AbstractDepends() {
			abstractDependsSet.add(d)
		}
	}

	queueSet := make(set)
	for t := range r {
		if !t.IsAbstract() {
			queueSet.add(t)
		}
	}

	providesSet := make(set)
	for t := range queueSet {
		for _, p := range t.Provides {
			providesSet.add(p)
		}
	}
	fullProvides := union(queueSet, providesSet)

	dependsSet := make(set)
	deltaD := make(set)
	for t := range r {
		if t.IsAbstract() {
			if dependsSet.add(t) {
				deltaD.add(t)
			}
		}
		for _, d := range t.Depends {
			if dependsSet.add(d) {
				deltaD.add(d)
			}
		}
	}

	deltaP := make(set)
	for p := range providesSet {
		deltaP[p] = true
	}

	bound := len(g.Targets())*2 + 16
	iterations := 0

	// chosenEssentials is recomputed every iteration (step 4) and read
	// once more after the loop breaks, to report the essentials the
	// request closure actually settled on (spec.md §4.5.1:
	// chosen_essentials) rather than re-deriving them from fullProvides,
	// which drops essentials the "vacuously satisfied" abstract-depends
	// cleanup below removes from dependsSet without ever adding to
	// providesSet.
	chosenEssentials := make(set)

	for {
		iterations++
		if iterations > bound {
			return nil, &ybld.ConvergenceFailure{Iterations: iterations}
		}
		changed := false

		// 1. Expand provides until stable.
		for len(deltaP) > 0 {
			next := make(set)
			for p := range deltaP {
				if providesSet.add(p) {
					changed = true
					for _, pp := range p.Provides {
						if !providesSet.has(pp) {
							next.add(pp)
						}
					}
				}
			}
			deltaP = next
		}
		fullProvides = union(queueSet, providesSet)

		// 2. Remove covered.
		for d := range dependsSet {
			if fullProvides.has(d) {
				delete(dependsSet, d)
				changed = true
			}
		}

		// 3. Expand dependencies until stable.
		for len(deltaD) > 0 {
			next := make(set)
			for d := range deltaD {
				if fullProvides.has(d) {
					continue
				}
				// d may already be in dependsSet (seeded at initialization
				// or by steps 4/5); its own depends still need expanding.
				if dependsSet.add(d) {
					changed = true
				}
				for _, dd := range d.Depends {
					if !dependsSet.has(dd) && !fullProvides.has(dd) {
						next.add(dd)
					}
				}
			}
			deltaD = next
		}

		// 4. Disambiguate abstract dependencies.
		chosenEssentials = make(set)
		for e := range essentials {
			if queueSet.has(e) || fullProvides.has(e) || dependsSet.has(e) {
				chosenEssentials.add(e)
			}
		}
		closeEssentialChain(chosenEssentials, essentials)

		excludedEssentials := make(set)
		for p := range essentialsUniverse {
			if !providesAnyChosenEssential(p, chosenEssentials) {
				excludedEssentials.add(p)
			}
		}

		var pendingAbstracts []*target.Target
		for d := range dependsSet {
			if d.IsAbstract() {
				pendingAbstracts = append(pendingAbstracts, d)
			}
		}
		sort.Slice(pendingAbstracts, func(i, j int) bool {
			return pendingAbstracts[i].Name < pendingAbstracts[j].Name
		})

		resolvedAbstracts := make(set)
		toQueue := make(set)
		for _, d := range pendingAbstracts {
			chosen := disambiguate(g, d, candidateInputs{
				queueSet:            queueSet,
				providesSet:         providesSet,
				fullProvides:        fullProvides,
				abstracts:           abstracts,
				abstractDependsSet:  abstractDependsSet,
				essentials:          essentials,
				chosenEssentials:    chosenEssentials,
				excludedEssentials:  excludedEssentials,
			})
			if chosen != nil {
				toQueue.add(chosen)
				resolvedAbstracts.add(d)
			}
		}

		if len(toQueue) > 0 {
			changed = true
			for c := range toQueue {
				queueSet.add(c)
				for _, p := range c.Provides {
					if providesSet.add(p) {
						deltaP.add(p)
					}
				}
				for _, dd := range c.Depends {
					if !dependsSet.has(dd) && !fullProvides.has(dd) {
						if dependsSet.add(dd) {
							deltaD.add(dd)
						}
					}
				}
			}
			for d := range resolvedAbstracts {
				delete(dependsSet, d)
				providesSet.add(d)
			}
			fullProvides = union(queueSet, providesSet)
		}

		// 5. Commit trivially satisfied concrete targets.
		committed := make(set)
		for d := range dependsSet {
			if d.IsAbstract() {
				continue
			}
			ok := true
			for _, dd := range d.Depends {
				if !fullProvides.has(dd) {
					ok = false
					break
				}
			}
			if ok {
				committed.add(d)
			}
		}
		if len(committed) > 0 {
			changed = true
			for c := range committed {
				queueSet.add(c)
				delete(dependsSet, c)
				for _, p := range c.Provides {
					if providesSet.add(p) {
						deltaP.add(p)
					}
				}
				for _, dd := range c.Depends {
					if !dependsSet.has(dd) && !fullProvides.has(dd) {
						if dependsSet.add(dd) {
							deltaD.add(dd)
						}
					}
				}
			}
			fullProvides = union(queueSet, providesSet)
		}

		// 6. Stop once a full pass makes no further progress.
		if !changed {
			break
		}
	}

	// Drop abstract entries satisfied vacuously: they have no candidate
	// provider and their concrete depends are all covered. An abstract
	// entry that has providers but none was chosen stays, and is reported
	// as ambiguous below.
	for d := range dependsSet {
		if !d.IsAbstract() || len(g.DirectProviders(d)) > 0 {
			continue
		}
		ok := true
		for _, dd := range d.NonAbstractDepends() {
			if !fullProvides.has(dd) {
				ok = false
				break
			}
		}
		if ok {
			delete(dependsSet, d)
		}
	}

	if len(dependsSet) > 0 {
		candidates := make(map[string][]string, len(dependsSet))
		for d := range dependsSet {
			var names []string
			for _, p := range g.DirectProviders(d) {
				names = append(names, p.Name)
			}
			sort.Strings(names)
			candidates[d.Name] = names
		}
		return nil, &ybld.Ambiguous{Candidates: candidates}
	}

	queue := sortedTargets(queueSet)
	if ok, filtered := hooks.BuildQueue(g, queue); !ok {
		return nil, &ybld.PluginReject{Hook: "plugin_build_queue"}
	} else {
		queue = filtered
	}
	if ok, filtered := hooks.EnqueueTargets(g, queue); !ok {
		return nil, &ybld.PluginReject{Hook: "plugin_enqueue_targets"}
	} else {
		queue = filtered
	}

	return &Result{
		Queue:        queue,
		FullProvides: fullProvides,
		Essentials:   chosenEssentials,
	}, nil
}

// requestSet applies spec.md §4.5.2's default/any resolution and returns the
// request set as a set of target handles. When requestedNames is empty,
// every target marked IsDefault is requested as well.
func requestSet(g *buildgraph.Graph, requestedNames []string) (set, error) {
	r := make(set)
	for _, n := range requestedNames {
		t, ok := g.Get(n)
		if !ok {
			return nil, &ybld.UnresolvedReference{Target: "<request>", Reference: n, Field: "request"}
		}
		r.add(t)
	}

	if len(r) == 0 {
		for _, t := range g.Targets() {
			if t.IsDefault {
				r.add(t)
			}
		}
		if def, ok := g.Get("default"); ok && len(def.Depends) > 0 {
			for _, d := range def.Depends {
				r.add(d)
			}
		}
	}

	if any, ok := g.Get("any"); ok && len(any.Depends) > 0 {
		for _, d := range any.Depends {
			r.add(d)
		}
	}

	if len(r) == 0 {
		return nil, &ybld.NoRequest{}
	}
	return r, nil
}

// closeEssentialChain extends chosen with any essential that a
// already-chosen essential provides, following chains of essentials
// providing other essentials (mirrors yamake's essentials-to-families
// derivation; see SPEC_FULL.md §5).
func closeEssentialChain(chosen, allEssentials set) {
	for {
		added := false
		for e := range chosen.clone() {
			for _, p := range e.Provides {
				if allEssentials.has(p) && chosen.add(p) {
					added = true
				}
			}
		}
		if !added {
			break
		}
	}
}

func providesAnyChosenEssential(p *target.Target, chosenEssentials set) bool {
	for _, prov := range p.Provides {
		if chosenEssentials.has(prov) {
			return true
		}
	}
	return false
}

type candidateInputs struct {
	queueSet           set
	providesSet        set
	fullProvides       set
	abstracts          set
	abstractDependsSet set
	essentials         set
	chosenEssentials   set
	excludedEssentials set
}

// disambiguate applies spec.md §4.5.4 step 4 to the abstract dependency d,
// returning the single chosen provider, or nil if d remains ambiguous.
func disambiguate(g *buildgraph.Graph, d *target.Target, in candidateInputs) *target.Target {
	p := make(set)
	for _, cand := range g.DirectProviders(d) {
		if len(cand.Depends) == 0 || dependsIntersects(cand, in.chosenEssentials) {
			p.add(cand)
		}
	}
	if len(p) > 1 && intersectsEssentials(p, in.essentials) {
		for t := range p.clone() {
			if in.excludedEssentials.has(t) || in.abstracts.has(t) {
				delete(p, t)
			}
		}
	}

	if single, ok := exactlyOne(p); ok {
		return single
	}

	// Ranked filter cascade (spec.md §4.5.4 step 4; order is normative).
	filters := []func(set) set{
		func(s set) set { return intersect(s, in.queueSet) },
		func(s set) set {
			base := union(in.providesSet, in.queueSet)
			return subtract(intersect(s, base), in.abstracts)
		},
		func(s set) set { return s },
		func(s set) set { return subtract(s, in.fullProvides) },
		func(s set) set { return subtract(s, in.abstractDependsSet) },
		func(s set) set { return subtract(s, in.abstracts) },
		func(s set) set { return subtract(s, union(in.abstracts, in.fullProvides)) },
	}
	for _, f := range filters {
		if single, ok := exactlyOne(f(p)); ok {
			return single
		}
	}

	// Final tie-break: prefer a candidate whose depends intersect
	// queue_set, then one whose depends intersect full_provides.
	if single, ok := exactlyOne(filterByDependsIntersecting(p, in.queueSet)); ok {
		return single
	}
	if single, ok := exactlyOne(filterByDependsIntersecting(p, in.fullProvides)); ok {
		return single
	}

	return nil
}

func dependsIntersects(t *target.Target, s set) bool {
	for _, d := range t.Depends {
		if s.has(d) {
			return true
		}
	}
	return false
}

func intersectsEssentials(s, essentials set) bool {
	for t := range s {
		if essentials.has(t) {
			return true
		}
	}
	return false
}

func intersect(a, b set) set {
	out := make(set)
	for t := range a {
		if b.has(t) {
			out.add(t)
		}
	}
	return out
}

func subtract(a, b set) set {
	out := make(set)
	for t := range a {
		if !b.has(t) {
			out.add(t)
		}
	}
	return out
}

func filterByDependsIntersecting(p, s set) set {
	out := make(set)
	for t := range p {
		if dependsIntersects(t, s) {
			out.add(t)
		}
	}
	return out
}

func exactlyOne(s set) (*target.Target, bool) {
	if len(s) != 1 {
		return nil, false
	}
	for t := range s {
		return t, true
	}
	return nil, false
}
