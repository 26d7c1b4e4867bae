// Package probe implements the timestamp probe (C4, spec.md §4.4): for each
// target with a declared artifact, it substitutes %(KEY)s placeholders
// against the run's configuration, stats the resulting path, and records a
// numeric freshness value on the target.
package probe

import (
	"os"
	"regexp"

	"github.com/ybld-dev/ybld/internal/config"
	"github.com/ybld-dev/ybld/internal/target"
)

var placeholder = regexp.MustCompile(`%\(([A-Za-z0-9_]+)\)s`)

// Substitute rewrites %(KEY)s placeholders in tmpl against cfg. If any
// placeholder names a key absent from cfg, ok is false (spec.md §4.4: "if a
// required key is missing, the substitution fails").
//
// This mirrors the Python '%' dict-formatting yamake's Target.CheckTimeStamp
// applies to exists_in_fs (`self.exists % builder.config`); Go's
// text/template uses "{{ }}" delimiters and so isn't a drop-in for this
// exact micro-syntax, so a small regexp substitution is used instead (see
// DESIGN.md).
func Substitute(tmpl string, cfg config.KV) (path string, ok bool) {
	missing := false
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, present := cfg[key]
		if !present {
			missing = true
			return m
		}
		return v
	})
	if missing {
		return "", false
	}
	return out, true
}

// stat is overridable in tests.
var stat = os.Stat

// Probe runs the timestamp probe over targets against cfg. It is pure-read
// and may be repeated (spec.md §4.4).
func Probe(targets []*target.Target, cfg config.KV) error {
	for _, t := range targets {
		probeOne(t, cfg)
	}
	return nil
}

func probeOne(t *target.Target, cfg config.KV) {
	if t.Artifact == "" {
		t.SetTimestamp(0)
		return
	}
	path, ok := Substitute(t.Artifact, cfg)
	if !ok {
		// Required configuration key missing: treated as "no artifact".
		t.SetTimestamp(0)
		return
	}
	fi, err := stat(path)
	if err != nil {
		t.SetTimestamp(0)
		return
	}
	if t.CheckMtime {
		t.SetTimestamp(float64(fi.ModTime().Unix()))
	} else {
		t.SetTimestamp(1.0)
	}
}

