package resolve

import (
	"testing"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/order"
	"github.com/ybld-dev/ybld/internal/target"
)

func mustFinalize(t *testing.T, b *buildgraph.Builder) *buildgraph.Graph {
	t.Helper()
	g, err := buildgraph.Finalize(b, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return g
}

func names(ts []*target.Target) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func concrete(b *buildgraph.Builder, name string, depends ...string) {
	b.Add(&target.Target{Name: name, Artifact: "/out/" + name, DependsNames: depends})
}

func TestResolveLinear(t *testing.T) {
	b := buildgraph.NewBuilder()
	concrete(b, "c")
	concrete(b, "b", "c")
	concrete(b, "a", "b")
	g := mustFinalize(t, b)

	result, err := Resolve(g, []string{"a"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	layers := order.Flatten(result.Queue)
	if got := names(layers); got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Fatalf("order = %v, want [c b a]", got)
	}
}

func TestResolveDiamond(t *testing.T) {
	b := buildgraph.NewBuilder()
	concrete(b, "d")
	concrete(b, "b", "d")
	concrete(b, "c", "d")
	concrete(b, "a", "b", "c")
	g := mustFinalize(t, b)

	result, err := Resolve(g, []string{"a"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Queue) != 4 {
		t.Fatalf("len(Queue) = %d, want 4", len(result.Queue))
	}
	layers := order.Layers(result.Queue)
	if len(layers) != 3 {
		t.Fatalf("len(Layers) = %d, want 3", len(layers))
	}
	if got := names(layers[0]); len(got) != 1 || got[0] != "d" {
		t.Fatalf("layer 0 = %v, want [d]", got)
	}
	if got := names(layers[1]); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("layer 1 = %v, want [b c]", got)
	}
	if got := names(layers[2]); len(got) != 1 || got[0] != "a" {
		t.Fatalf("layer 2 = %v, want [a]", got)
	}
}

func TestResolveAbstractCover(t *testing.T) {
	b := buildgraph.NewBuilder()
	b.Add(&target.Target{Name: "feat"})
	b.Add(&target.Target{Name: "impl1", Artifact: "/out/impl1", ProvidesNames: []string{"feat"}})
	concrete(b, "user", "feat")
	g := mustFinalize(t, b)

	result, err := Resolve(g, []string{"user"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := names(result.Queue)
	if len(got) != 2 {
		t.Fatalf("Queue = %v, want 2 entries", got)
	}
	for _, n := range got {
		if n == "feat" {
			t.Fatalf("abstract target feat present in queue: %v", got)
		}
	}
}

func TestResolveAmbiguous(t *testing.T) {
	b := buildgraph.NewBuilder()
	b.Add(&target.Target{Name: "feat"})
	b.Add(&target.Target{Name: "impl1", Artifact: "/out/impl1", ProvidesNames: []string{"feat"}})
	b.Add(&target.Target{Name: "impl2", Artifact: "/out/impl2", ProvidesNames: []string{"feat"}})
	concrete(b, "user", "feat")
	g := mustFinalize(t, b)

	_, err := Resolve(g, []string{"user"}, nil)
	amb, ok := err.(*ybld.Ambiguous)
	if !ok {
		t.Fatalf("Resolve error = %v (%T), want *ybld.Ambiguous", err, err)
	}
	candidates := amb.Candidates["feat"]
	if len(candidates) != 2 {
		t.Fatalf("candidates[feat] = %v, want 2 entries", candidates)
	}
}

func TestResolveEssentialSelection(t *testing.T) {
	b := buildgraph.NewBuilder()
	b.Add(&target.Target{Name: "plat-a", Essential: true})
	b.Add(&target.Target{Name: "plat-b", Essential: true})
	b.Add(&target.Target{Name: "lib-a", Artifact: "/out/lib-a", DependsNames: []string{"plat-a"}, ProvidesNames: []string{"feat"}})
	b.Add(&target.Target{Name: "lib-b", Artifact: "/out/lib-b", DependsNames: []string{"plat-b"}, ProvidesNames: []string{"feat"}})
	b.Add(&target.Target{Name: "feat"})
	concrete(b, "user", "feat", "plat-a")
	g := mustFinalize(t, b)

	result, err := Resolve(g, []string{"user"}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := names(result.Queue)
	hasLibA, hasLibB := false, false
	for _, n := range got {
		if n == "lib-a" {
			hasLibA = true
		}
		if n == "lib-b" {
			hasLibB = true
		}
	}
	if !hasLibA {
		t.Fatalf("Queue = %v, want lib-a present", got)
	}
	if hasLibB {
		t.Fatalf("Queue = %v, want lib-b absent", got)
	}
}

func TestResolveNoRequestUsesDefault(t *testing.T) {
	b := buildgraph.NewBuilder()
	concrete(b, "c")
	b.Add(&target.Target{Name: "default", DependsNames: []string{"c"}})
	g := mustFinalize(t, b)

	result, err := Resolve(g, nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := names(result.Queue); len(got) != 1 || got[0] != "c" {
		t.Fatalf("Queue = %v, want [c]", got)
	}
}

func TestResolveNoRequestNoDefault(t *testing.T) {
	b := buildgraph.NewBuilder()
	concrete(b, "c")
	g := mustFinalize(t, b)

	_, err := Resolve(g, nil, nil)
	if _, ok := err.(*ybld.NoRequest); !ok {
		t.Fatalf("Resolve error = %v (%T), want *ybld.NoRequest", err, err)
	}
}
