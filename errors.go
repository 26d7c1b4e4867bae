package ybld

import "fmt"

// UnresolvedReference is returned when a target's depends or provides list
// names a target that was never registered.
type UnresolvedReference struct {
	Target    string
	Reference string
	Field     string // "depends" or "provides"
}

func (e *UnresolvedReference) Error() string {
	return fmt.Sprintf("target %q: unresolved %s reference %q", e.Target, e.Field, e.Reference)
}

// CyclicDependency is returned when the depends relation contains a cycle.
type CyclicDependency struct {
	Cycle []string
}

func (e *CyclicDependency) Error() string {
	return fmt.Sprintf("cyclic dependency: %v", e.Cycle)
}

// CyclicProvide is returned when the provides relation contains a cycle.
type CyclicProvide struct {
	Cycle []string
}

func (e *CyclicProvide) Error() string {
	return fmt.Sprintf("cyclic provide: %v", e.Cycle)
}

// MultipleEssentials is returned when a target depends on more than one
// essential target.
type MultipleEssentials struct {
	Target     string
	Essentials []string
}

func (e *MultipleEssentials) Error() string {
	return fmt.Sprintf("target %q depends on multiple essentials: %v", e.Target, e.Essentials)
}

// SelfDependency is returned when a target appears in its own depends list.
type SelfDependency struct {
	Target string
}

func (e *SelfDependency) Error() string {
	return fmt.Sprintf("target %q depends on itself", e.Target)
}

// NoRequest is returned when the request set is empty and no default target
// is registered.
type NoRequest struct{}

func (e *NoRequest) Error() string {
	return "no targets requested and no default target defined"
}

// Ambiguous is returned when the resolver terminates with a non-empty
// residual set of abstract dependencies it could not disambiguate.
type Ambiguous struct {
	// Candidates maps each unresolved abstract target name to the names of
	// its candidate providers (possibly empty, meaning no provider exists
	// at all).
	Candidates map[string][]string
}

func (e *Ambiguous) Error() string {
	return fmt.Sprintf("ambiguous dependencies: %v", e.Candidates)
}

// PluginReject is returned when an extension hook rejects the run by
// returning a falsy ok.
type PluginReject struct {
	Hook   string
	Reason string
}

func (e *PluginReject) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("plugin hook %s rejected the run", e.Hook)
	}
	return fmt.Sprintf("plugin hook %s rejected the run: %s", e.Hook, e.Reason)
}

// ActionFailure is returned when a target's action or clean_action callback
// fails.
type ActionFailure struct {
	Target string
	Err    error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("target %q: action failed: %v", e.Target, e.Err)
}

func (e *ActionFailure) Unwrap() error { return e.Err }

// ConvergenceFailure is returned when the resolver's main loop fails to
// reach a fixed point within its graph-size bound. This is a defensive
// diagnostic for pathological declaration graphs; it should not occur for
// well-formed input.
type ConvergenceFailure struct {
	Iterations int
}

func (e *ConvergenceFailure) Error() string {
	return fmt.Sprintf("resolver failed to converge after %d iterations", e.Iterations)
}
