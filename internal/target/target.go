// Package target defines Target (C1, spec.md §4.1): the immutable
// declaration record plus the small amount of derived state (timestamp,
// probed flag) set once during loading and probing. Both declaration
// front-ends (internal/declfile, internal/register) build *Target values;
// internal/buildgraph resolves their DependsNames/ProvidesNames string
// lists into the Depends/Provides handle slices every other package
// operates on.
package target

import "context"

// Outcome is the typed replacement for the source's "action returns a dict
// of field updates" mechanism (spec.md §9, "Dynamic mapping-return from
// actions"). Success/Message are always reported back to the scheduler;
// Updates is an optional set of allow-listed fields the action wants
// merged back onto its Target (see ApplyUpdates).
type Outcome struct {
	Success bool
	Message string
	Updates map[string]interface{}
}

// ActionFunc is the user-supplied build or clean callback bound to a
// Target's Action/CleanAction. It is invoked synchronously by
// internal/schedule; ctx carries cancellation. schedule.Run does not invoke
// callbacks in dry-run mode, so it always passes dryRun as false.
type ActionFunc func(ctx context.Context, dryRun bool) (Outcome, error)

// Target is the central entity of spec.md §3: a named build unit with a
// depends/provides pair on both axes (concrete and abstract), an optional
// on-disk artifact, and the callbacks that build or remove it.
//
// Name, DependsNames, ProvidesNames, Artifact, Layers, CheckMtime,
// Essential, IsDefault, Action, and CleanAction are set during loading and
// are immutable afterward. Depends and Provides are populated once, by
// buildgraph.Finalize, from DependsNames/ProvidesNames. Timestamp is set
// by internal/probe.Probe and may be changed afterward only through
// ApplyUpdates. Extra carries declaration-file fields the
// core does not interpret, so they round-trip through --json-output
// untouched (spec.md §6.1: "unknown keys are preserved but ignored by the
// core").
type Target struct {
	Name string

	// DependsNames and ProvidesNames are the unresolved name lists a
	// front-end populates; buildgraph.Finalize rewrites them into
	// Depends/Provides handles.
	DependsNames  []string
	ProvidesNames []string

	Depends  []*Target
	Provides []*Target

	// Artifact is the on-disk artifact path template, possibly containing
	// %(KEY)s placeholders (spec.md §3). Empty means "no artifact".
	Artifact string

	// Action and CleanAction are user callbacks; either may be nil.
	Action      ActionFunc
	CleanAction ActionFunc

	// Layers is opaque payload passed through to the layer engine this
	// core does not implement (spec.md §1: "deliberately out of scope").
	// A target with non-empty Layers and no Artifact/Action is still
	// concrete (spec.md §3, IsAbstract).
	Layers []string

	CheckMtime bool
	Essential  bool
	IsDefault  bool

	// Extra holds declaration-file fields not recognized by the core
	// (internal/declfile), so MarshalJSON can round-trip them.
	Extra map[string]interface{}

	// Timestamp is derived by internal/probe.Probe: 0 if the artifact is
	// missing or undeclared, 1.0 if present and CheckMtime is false, or
	// the artifact's mtime (as a Unix timestamp) if present and
	// CheckMtime is true.
	Timestamp float64
	probed    bool
}

// IsAbstract reports whether t is a pure capability name with nothing to
// build: no artifact, no action, no layers (spec.md §3). Abstract targets
// are never scheduled; they exist to be "covered" by a concrete provider.
func (t *Target) IsAbstract() bool {
	return t.Artifact == "" && t.Action == nil && len(t.Layers) == 0
}

// NonAbstractDepends returns Depends filtered to concrete targets
// (spec.md §4.1).
func (t *Target) NonAbstractDepends() []*Target {
	var out []*Target
	for _, d := range t.Depends {
		if !d.IsAbstract() {
			out = append(out, d)
		}
	}
	return out
}

// AbstractDepends returns the complement of NonAbstractDepends (spec.md
// §4.1).
func (t *Target) AbstractDepends() []*Target {
	var out []*Target
	for _, d := range t.Depends {
		if d.IsAbstract() {
			out = append(out, d)
		}
	}
	return out
}

// SetTimestamp records t's freshness value and marks t as probed. It is
// the only way internal/probe (and ApplyUpdates, via an action's
// "timestamp" field update) may mutate Timestamp after load.
func (t *Target) SetTimestamp(ts float64) {
	t.Timestamp = ts
	t.probed = true
}

// Probed reports whether internal/probe.Probe (or an action's update) has
// set Timestamp yet.
func (t *Target) Probed() bool {
	return t.probed
}

// updatableFields is the allow-list spec.md §9 calls for in place of the
// source's unconstrained dict writeback: only fields that cannot change
// the shape of the depends/provides graph may be merged back from an
// action's Outcome.Updates.
var updatableFields = map[string]bool{
	"timestamp": true,
}

// ApplyUpdates merges the allow-listed fields of updates onto t. Unknown
// keys are ignored rather than erroring, matching the declaration file's
// "unrecognized keys are ignored" posture (spec.md §6.1) for the
// analogous action-writeback path.
func (t *Target) ApplyUpdates(updates map[string]interface{}) {
	for k, v := range updates {
		if !updatableFields[k] {
			continue
		}
		switch k {
		case "timestamp":
			if f, ok := v.(float64); ok {
				t.SetTimestamp(f)
			}
		}
	}
}
