package order

import (
	"testing"

	"github.com/ybld-dev/ybld/internal/target"
)

func TestLayersLinear(t *testing.T) {
	c := &target.Target{Name: "c", Artifact: "/out/c"}
	b := &target.Target{Name: "b", Artifact: "/out/b", Depends: []*target.Target{c}}
	a := &target.Target{Name: "a", Artifact: "/out/a", Depends: []*target.Target{b}}

	layers := Layers([]*target.Target{a, b, c})
	if len(layers) != 3 {
		t.Fatalf("len(Layers) = %d, want 3", len(layers))
	}
	if layers[0][0].Name != "c" || layers[1][0].Name != "b" || layers[2][0].Name != "a" {
		t.Fatalf("layers = %v", layers)
	}
}

func TestLayersDiamondNameSort(t *testing.T) {
	d := &target.Target{Name: "d", Artifact: "/out/d"}
	bT := &target.Target{Name: "b", Artifact: "/out/b", Depends: []*target.Target{d}}
	cT := &target.Target{Name: "c", Artifact: "/out/c", Depends: []*target.Target{d}}
	a := &target.Target{Name: "a", Artifact: "/out/a", Depends: []*target.Target{bT, cT}}

	layers := Layers([]*target.Target{a, cT, bT, d})
	if len(layers) != 3 {
		t.Fatalf("len(Layers) = %d, want 3", len(layers))
	}
	if len(layers[1]) != 2 || layers[1][0].Name != "b" || layers[1][1].Name != "c" {
		t.Fatalf("layer 1 = %v, want [b c]", layers[1])
	}
}

func TestLayersDropsAbstract(t *testing.T) {
	feat := &target.Target{Name: "feat"}
	impl := &target.Target{Name: "impl", Artifact: "/out/impl", Provides: []*target.Target{feat}}
	user := &target.Target{Name: "user", Artifact: "/out/user", Depends: []*target.Target{feat}}

	flat := Flatten([]*target.Target{feat, impl, user})
	for _, tgt := range flat {
		if tgt.Name == "feat" {
			t.Fatalf("abstract target feat present in flattened order: %v", flat)
		}
	}
	if len(flat) != 2 {
		t.Fatalf("len(Flatten) = %d, want 2", len(flat))
	}
}

func TestLayersEmptyQueue(t *testing.T) {
	if got := Layers(nil); got != nil {
		t.Fatalf("Layers(nil) = %v, want nil", got)
	}
}
