// Package register implements the programmatic declaration front-end
// (spec.md §6.1): Go code builds targets by calling functions against an
// explicit *buildgraph.Builder, rather than through decorators appended to
// a process-wide index. This keeps the "decorator/registration style"
// ergonomics of yamake_builder.py's Builder.Initialize (each declaration is
// registered against one Builder instance) while avoiding the module-level
// Target.lTargets/Target.index singleton spec.md §9 flags as worth
// dropping: callers hold the Builder value and can run multiple,
// independent registrations in the same process (e.g. in tests).
package register

import (
	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/target"
)

// Option configures a target at registration time.
type Option func(*target.Target)

// Depends declares names t must be built after.
func Depends(names ...string) Option {
	return func(t *target.Target) { t.DependsNames = append(t.DependsNames, names...) }
}

// Provides declares additional capability names t satisfies.
func Provides(names ...string) Option {
	return func(t *target.Target) { t.ProvidesNames = append(t.ProvidesNames, names...) }
}

// Exists sets the on-disk artifact path template.
func Exists(pathTemplate string) Option {
	return func(t *target.Target) { t.Artifact = pathTemplate }
}

// Layers attaches opaque layer payload, which alone (absent Exists/Action)
// still makes a target concrete rather than abstract.
func Layers(layers ...string) Option {
	return func(t *target.Target) { t.Layers = append(t.Layers, layers...) }
}

// CheckMtime enables mtime-based freshness instead of pure existence.
func CheckMtime() Option {
	return func(t *target.Target) { t.CheckMtime = true }
}

// Essential marks t as a member of the essentials set (spec.md §4.5.1).
func Essential() Option {
	return func(t *target.Target) { t.Essential = true }
}

// Default marks t as a member of the implicit default request.
func Default() Option {
	return func(t *target.Target) { t.IsDefault = true }
}

// Action binds the build callback.
func Action(fn target.ActionFunc) Option {
	return func(t *target.Target) { t.Action = fn }
}

// CleanAction binds the clean callback.
func CleanAction(fn target.ActionFunc) Option {
	return func(t *target.Target) { t.CleanAction = fn }
}

// Target registers a target named name with opts applied, the spec.md §6.1
// programmatic equivalent of `target(name=…, …)`. The target is concrete
// only if an option sets an artifact, an action or layers; otherwise it is
// abstract.
func Target(b *buildgraph.Builder, name string, opts ...Option) *target.Target {
	t := &target.Target{Name: name, Extra: make(map[string]interface{})}
	for _, opt := range opts {
		opt(t)
	}
	b.Add(t)
	return t
}

// Task registers a target with no artifact, action or layers, so the
// result is abstract: shorthand for a pure ordering node (spec.md §6.1,
// `task(name, depends)`).
func Task(b *buildgraph.Builder, name string, depends ...string) *target.Target {
	opts := []Option{}
	if len(depends) > 0 {
		opts = append(opts, Depends(depends...))
	}
	return Target(b, name, opts...)
}

// Clean attaches a clean callback to the already-registered target name.
func Clean(b *buildgraph.Builder, name string, fn target.ActionFunc) {
	if t, ok := b.Get(name); ok {
		t.CleanAction = fn
	}
}

// MarkDefault flags an already-registered target as the default.
func MarkDefault(b *buildgraph.Builder, name string) {
	if t, ok := b.Get(name); ok {
		t.IsDefault = true
	}
}

// MarkEssential flags an already-registered target as essential.
func MarkEssential(b *buildgraph.Builder, name string) {
	if t, ok := b.Get(name); ok {
		t.Essential = true
	}
}

// AttachProvides adds provides names to an already-registered target.
func AttachProvides(b *buildgraph.Builder, name string, provides ...string) {
	if t, ok := b.Get(name); ok {
		t.ProvidesNames = append(t.ProvidesNames, provides...)
	}
}
