package register

import (
	"context"
	"testing"

	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/target"
)

func TestTargetAppliesOptions(t *testing.T) {
	b := buildgraph.NewBuilder()
	fn := func(ctx context.Context, dryRun bool) (target.Outcome, error) {
		return target.Outcome{Success: true}, nil
	}

	tgt := Target(b, "lib",
		Depends("base"),
		Provides("feat"),
		Exists("%(LAYERS)s/lib/lib.so"),
		CheckMtime(),
		Essential(),
		Default(),
		Action(fn),
		CleanAction(fn),
	)

	if got := tgt.DependsNames; len(got) != 1 || got[0] != "base" {
		t.Fatalf("DependsNames = %v, want [base]", got)
	}
	if got := tgt.ProvidesNames; len(got) != 1 || got[0] != "feat" {
		t.Fatalf("ProvidesNames = %v, want [feat]", got)
	}
	if tgt.Artifact != "%(LAYERS)s/lib/lib.so" {
		t.Fatalf("Artifact = %q", tgt.Artifact)
	}
	if !tgt.CheckMtime || !tgt.Essential || !tgt.IsDefault {
		t.Fatalf("flags = %v/%v/%v, want true/true/true", tgt.CheckMtime, tgt.Essential, tgt.IsDefault)
	}
	if tgt.Action == nil || tgt.CleanAction == nil {
		t.Fatalf("Action/CleanAction not bound")
	}

	got, ok := b.Get("lib")
	if !ok || got != tgt {
		t.Fatalf("b.Get(lib) = %v, %v, want the registered target", got, ok)
	}
}

func TestTaskWithoutDepends(t *testing.T) {
	b := buildgraph.NewBuilder()
	tgt := Task(b, "noop")
	if len(tgt.DependsNames) != 0 {
		t.Fatalf("DependsNames = %v, want empty", tgt.DependsNames)
	}
	if !tgt.IsAbstract() {
		t.Fatalf("Task with no exists/action/layers should be abstract")
	}
}

func TestTaskWithDepends(t *testing.T) {
	b := buildgraph.NewBuilder()
	tgt := Task(b, "seq", "a", "b")
	if got := tgt.DependsNames; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("DependsNames = %v, want [a b]", got)
	}
}

func TestMarkDefaultAndEssential(t *testing.T) {
	b := buildgraph.NewBuilder()
	Target(b, "plat")

	MarkDefault(b, "plat")
	MarkEssential(b, "plat")

	tgt, _ := b.Get("plat")
	if !tgt.IsDefault || !tgt.Essential {
		t.Fatalf("IsDefault/Essential = %v/%v, want true/true", tgt.IsDefault, tgt.Essential)
	}
}

func TestMarkDefaultUnknownNameIsNoOp(t *testing.T) {
	b := buildgraph.NewBuilder()
	MarkDefault(b, "missing")
	if _, ok := b.Get("missing"); ok {
		t.Fatalf("b.Get(missing) = ok, want not found")
	}
}

func TestAttachProvides(t *testing.T) {
	b := buildgraph.NewBuilder()
	Target(b, "lib")
	AttachProvides(b, "lib", "feat1", "feat2")

	tgt, _ := b.Get("lib")
	if got := tgt.ProvidesNames; len(got) != 2 || got[0] != "feat1" || got[1] != "feat2" {
		t.Fatalf("ProvidesNames = %v, want [feat1 feat2]", got)
	}
}

func TestClean(t *testing.T) {
	b := buildgraph.NewBuilder()
	Target(b, "lib")
	fn := func(ctx context.Context, dryRun bool) (target.Outcome, error) {
		return target.Outcome{Success: true}, nil
	}
	Clean(b, "lib", fn)

	tgt, _ := b.Get("lib")
	if tgt.CleanAction == nil {
		t.Fatalf("CleanAction not bound")
	}
}
