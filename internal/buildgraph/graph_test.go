package buildgraph

import (
	"testing"

	"github.com/ybld-dev/ybld"
	"github.com/ybld-dev/ybld/internal/target"
)

func add(b *Builder, name string, depends, provides []string) {
	b.Add(&target.Target{Name: name, DependsNames: depends, ProvidesNames: provides})
}

func TestFinalizeLinear(t *testing.T) {
	b := NewBuilder()
	add(b, "a", nil, nil)
	add(b, "b", []string{"a"}, nil)
	add(b, "c", []string{"b"}, nil)

	g, err := Finalize(b, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	c, _ := g.Get("c")
	if len(c.Depends) != 1 || c.Depends[0].Name != "b" {
		t.Fatalf("c.Depends = %v, want [b]", c.Depends)
	}
}

func TestFinalizeUnresolvedReference(t *testing.T) {
	b := NewBuilder()
	add(b, "a", []string{"missing"}, nil)

	_, err := Finalize(b, nil)
	if _, ok := err.(*ybld.UnresolvedReference); !ok {
		t.Fatalf("Finalize error = %v (%T), want *ybld.UnresolvedReference", err, err)
	}
}

func TestFinalizeSelfDependency(t *testing.T) {
	b := NewBuilder()
	add(b, "a", []string{"a"}, nil)

	_, err := Finalize(b, nil)
	if _, ok := err.(*ybld.SelfDependency); !ok {
		t.Fatalf("Finalize error = %v (%T), want *ybld.SelfDependency", err, err)
	}
}

func TestFinalizeCyclicDependency(t *testing.T) {
	b := NewBuilder()
	add(b, "a", []string{"b"}, nil)
	add(b, "b", []string{"a"}, nil)

	_, err := Finalize(b, nil)
	cd, ok := err.(*ybld.CyclicDependency)
	if !ok {
		t.Fatalf("Finalize error = %v (%T), want *ybld.CyclicDependency", err, err)
	}
	if len(cd.Cycle) != 2 {
		t.Fatalf("cycle = %v, want 2 members", cd.Cycle)
	}
}

func TestFinalizeCyclicProvide(t *testing.T) {
	b := NewBuilder()
	add(b, "a", nil, []string{"b"})
	add(b, "b", nil, []string{"a"})

	_, err := Finalize(b, nil)
	if _, ok := err.(*ybld.CyclicProvide); !ok {
		t.Fatalf("Finalize error = %v (%T), want *ybld.CyclicProvide", err, err)
	}
}

func TestFinalizeMultipleEssentials(t *testing.T) {
	b := NewBuilder()
	b.Add(&target.Target{Name: "plat-a", Essential: true})
	b.Add(&target.Target{Name: "plat-b", Essential: true})
	add(b, "user", []string{"plat-a", "plat-b"}, nil)

	_, err := Finalize(b, nil)
	me, ok := err.(*ybld.MultipleEssentials)
	if !ok {
		t.Fatalf("Finalize error = %v (%T), want *ybld.MultipleEssentials", err, err)
	}
	if me.Target != "user" {
		t.Fatalf("MultipleEssentials.Target = %q, want %q", me.Target, "user")
	}
}

func TestProviderIndex(t *testing.T) {
	b := NewBuilder()
	add(b, "lib-a", nil, []string{"feat"})
	add(b, "lib-b", nil, []string{"feat"})
	b.Add(&target.Target{Name: "feat"})

	g, err := Finalize(b, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	feat, _ := g.Get("feat")
	providers := g.DirectProviders(feat)
	if len(providers) != 2 {
		t.Fatalf("DirectProviders(feat) = %v, want 2 entries", providers)
	}
}

func TestEssentialFamily(t *testing.T) {
	b := NewBuilder()
	b.Add(&target.Target{Name: "plat", Essential: true, ProvidesNames: nil})
	b.Add(&target.Target{Name: "plat-variant", Essential: true, ProvidesNames: []string{"plat"}})

	g, err := Finalize(b, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	variant, _ := g.Get("plat-variant")
	plat, _ := g.Get("plat")
	if head := g.EssentialFamily(variant); head != plat {
		t.Fatalf("EssentialFamily(plat-variant) = %v, want plat", head.Name)
	}
}
