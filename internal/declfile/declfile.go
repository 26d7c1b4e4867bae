// Package declfile implements the serialized declaration front-end
// (spec.md §6.1): a YAML document mapping target name to field dict is
// loaded into a buildgraph.Builder, and a Builder's contents can be
// serialized back out for --json-output. Unknown keys round-trip through
// target.Target.Extra untouched.
//
// This mirrors the buffer-pooled open-read-parse structure of distri's
// pb/readbuild.go and pb/readmeta.go (registering into a Builder rather
// than returning a value), with gopkg.in/yaml.v3 in
// place of the textproto front-end those read: ybld's declarations have no
// protoc-generated schema to decode against, and yaml.v3's node-level API
// gives the same "parse known fields, keep the rest" behavior spec.md §6.1
// requires ("unknown keys are preserved but ignored by the core"). The YAML
// document shape itself (a mapping of target name to field dict) follows
// Builder.Initialize's yaml.safe_load(build_file) in the original source.
package declfile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/ybld-dev/ybld/internal/buildgraph"
	"github.com/ybld-dev/ybld/internal/target"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

var bufPool = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

// recognizedFields are the declaration keys the core interprets (spec.md
// §6.1). Everything else lands in Target.Extra.
var recognizedFields = map[string]bool{
	"depends":     true,
	"provides":    true,
	"exists":      true,
	"layers":      true,
	"actions":     true,
	"clean":       true,
	"essential":   true,
	"check_mtime": true,
	"mtime":       true,
	"default":     true,
}

// Load reads a declaration file at path and registers each entry into b.
func Load(path string, b *buildgraph.Builder) error {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("opening declaration file %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(buf, f); err != nil {
		return xerrors.Errorf("reading declaration file %s: %w", path, err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		return xerrors.Errorf("parsing declaration file %s: %w", path, err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t, err := decodeTarget(name, doc[name])
		if err != nil {
			return xerrors.Errorf("target %q: %w", name, err)
		}
		b.Add(t)
	}
	return nil
}

func decodeTarget(name string, node yaml.Node) (*target.Target, error) {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}

	t := &target.Target{Name: name, Extra: make(map[string]interface{})}

	if n, ok := raw["depends"]; ok {
		if err := n.Decode(&t.DependsNames); err != nil {
			return nil, xerrors.Errorf("depends: %w", err)
		}
	}
	if n, ok := raw["provides"]; ok {
		if err := n.Decode(&t.ProvidesNames); err != nil {
			return nil, xerrors.Errorf("provides: %w", err)
		}
	}
	if n, ok := raw["exists"]; ok {
		if err := n.Decode(&t.Artifact); err != nil {
			return nil, xerrors.Errorf("exists: %w", err)
		}
	}
	if n, ok := raw["layers"]; ok {
		if err := n.Decode(&t.Layers); err != nil {
			return nil, xerrors.Errorf("layers: %w", err)
		}
	}
	if n, ok := raw["essential"]; ok {
		if err := n.Decode(&t.Essential); err != nil {
			return nil, xerrors.Errorf("essential: %w", err)
		}
	}
	if n, ok := raw["default"]; ok {
		if err := n.Decode(&t.IsDefault); err != nil {
			return nil, xerrors.Errorf("default: %w", err)
		}
	}
	if n, ok := raw["check_mtime"]; ok {
		if err := n.Decode(&t.CheckMtime); err != nil {
			return nil, xerrors.Errorf("check_mtime: %w", err)
		}
	}

	// "actions" and "clean" name the build/clean action to bind; the
	// serialized front-end has no callback to bind them to (spec.md §6.1:
	// "mapping of name → field dict", not code), so they are carried
	// through as Extra for a registration layer or CLI glue to consult.

	for key, n := range raw {
		if recognizedFields[key] {
			continue
		}
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return nil, xerrors.Errorf("%s: %w", key, err)
		}
		t.Extra[key] = v
	}
	if actionName, ok := raw["actions"]; ok {
		var s string
		if err := actionName.Decode(&s); err == nil {
			t.Extra["actions"] = s
		}
	}
	if cleanName, ok := raw["clean"]; ok {
		var s string
		if err := cleanName.Decode(&s); err == nil {
			t.Extra["clean"] = s
		}
	}
	if mtime, ok := raw["mtime"]; ok {
		var f float64
		if err := mtime.Decode(&f); err == nil {
			t.Extra["mtime"] = f
		}
	}

	return t, nil
}

// MarshalJSON serializes every target in b back into declaration-file form
// for --json-output (spec.md §6.4), in name order. The field dict for each
// target merges the recognized fields with its Extra entries, so the
// output round-trips through Load-equivalent YAML parsing unchanged save
// for the outer syntax.
func MarshalJSON(b *buildgraph.Builder) ([]byte, error) {
	doc := make(map[string]map[string]interface{}, len(b.Names()))
	for _, name := range b.Names() {
		t, _ := b.Get(name)
		fields := make(map[string]interface{}, len(t.Extra)+8)
		for k, v := range t.Extra {
			fields[k] = v
		}
		if len(t.DependsNames) > 0 {
			fields["depends"] = t.DependsNames
		}
		if len(t.ProvidesNames) > 0 {
			fields["provides"] = t.ProvidesNames
		}
		if t.Artifact != "" {
			fields["exists"] = t.Artifact
		}
		if len(t.Layers) > 0 {
			fields["layers"] = t.Layers
		}
		if t.Essential {
			fields["essential"] = true
		}
		if t.IsDefault {
			fields["default"] = true
		}
		if t.CheckMtime {
			fields["check_mtime"] = true
		}
		doc[name] = fields
	}
	return json.MarshalIndent(doc, "", "  ")
}
