// Package pluginhook defines the extension hook contract from spec.md §6.2:
// a capability-trait with five hook methods, each with a no-op default, so
// the core only needs a Hooks value and never has to know how (or whether)
// a plugin is dynamically loaded (spec.md §9, "Plugin mechanism").
//
// The interfaces here are defined in terms of target.Target only (not the
// concrete buildgraph.Builder/Graph types) so that internal/buildgraph can
// depend on pluginhook without pluginhook depending back on buildgraph.
// *buildgraph.Builder and *buildgraph.Graph satisfy GraphBuilder and Graph
// structurally.
package pluginhook

import "github.com/ybld-dev/ybld/internal/target"

// GraphBuilder is the subset of *buildgraph.Builder a plugin_initialize
// hook may use to inspect already-registered targets.
type GraphBuilder interface {
	Get(name string) (*target.Target, bool)
	Names() []string
}

// Graph is the subset of *buildgraph.Graph a plugin hook may use.
type Graph interface {
	Get(name string) (*target.Target, bool)
	Targets() []*target.Target
}

// Hooks is the full extension hook contract. Embed NoOp to get sensible
// defaults for hooks a plugin does not implement.
type Hooks interface {
	// Initialize runs after declarations are parsed but before Finalize
	// resolves name references. Returned entries are registered as
	// additional targets, keyed by name.
	Initialize(b GraphBuilder) (map[string]*target.Target, error)

	// FinalizeGraph runs after Finalize resolves name references; it may
	// mutate non-structural target fields (e.g. Artifact, Layers) but
	// must not change the shape of the depends/provides graph.
	FinalizeGraph(g Graph) error

	// ChooseEssential may set the chosen essential before resolve; ok
	// false aborts the run with PluginReject.
	ChooseEssential(g Graph, requested []string) (ok bool)

	// BuildQueue may filter or reorder the resolved queue before
	// ordering; ok false aborts the run with PluginReject.
	BuildQueue(g Graph, queue []*target.Target) (ok bool, out []*target.Target)

	// EnqueueTargets is a post-queue filter, run after BuildQueue; ok
	// false aborts the run with PluginReject.
	EnqueueTargets(g Graph, queue []*target.Target) (ok bool, out []*target.Target)
}

// NoOp implements Hooks with no-op defaults. Embed it in a partial plugin
// implementation to avoid reimplementing hooks you don't need.
type NoOp struct{}

func (NoOp) Initialize(GraphBuilder) (map[string]*target.Target, error) { return nil, nil }
func (NoOp) FinalizeGraph(Graph) error                                  { return nil }
func (NoOp) ChooseEssential(Graph, []string) bool                       { return true }
func (NoOp) BuildQueue(_ Graph, queue []*target.Target) (bool, []*target.Target) {
	return true, queue
}
func (NoOp) EnqueueTargets(_ Graph, queue []*target.Target) (bool, []*target.Target) {
	return true, queue
}

var _ Hooks = NoOp{}
