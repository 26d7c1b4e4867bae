package probe

import (
	"os"
	"testing"
	"time"

	"github.com/ybld-dev/ybld/internal/config"
	"github.com/ybld-dev/ybld/internal/target"
)

type fakeFileInfo struct {
	os.FileInfo
	modTime time.Time
}

func (f fakeFileInfo) ModTime() time.Time { return f.modTime }

func TestSubstitute(t *testing.T) {
	cfg := config.KV{"LAYERS": "/var/layers"}
	got, ok := Substitute("%(LAYERS)s/bin/foo", cfg)
	if !ok {
		t.Fatalf("Substitute: ok = false, want true")
	}
	if want := "/var/layers/bin/foo"; got != want {
		t.Fatalf("Substitute = %q, want %q", got, want)
	}
}

func TestSubstituteMissingKey(t *testing.T) {
	_, ok := Substitute("%(MISSING)s/bin/foo", config.KV{})
	if ok {
		t.Fatalf("Substitute: ok = true, want false for missing key")
	}
}

func TestProbeNoArtifact(t *testing.T) {
	tgt := &target.Target{Name: "abstract-thing"}
	Probe([]*target.Target{tgt}, config.KV{})
	if tgt.Timestamp != 0 {
		t.Fatalf("Timestamp = %v, want 0", tgt.Timestamp)
	}
	if !tgt.Probed() {
		t.Fatalf("Probed() = false, want true")
	}
}

func TestProbeCheckMtime(t *testing.T) {
	orig := stat
	defer func() { stat = orig }()
	mtime := time.Unix(1234, 0)
	stat = func(path string) (os.FileInfo, error) {
		if path != "/bin/foo" {
			t.Fatalf("stat called with %q, want /bin/foo", path)
		}
		return fakeFileInfo{modTime: mtime}, nil
	}

	tgt := &target.Target{Name: "foo", Artifact: "/bin/foo", CheckMtime: true}
	Probe([]*target.Target{tgt}, config.KV{})
	if tgt.Timestamp != float64(mtime.Unix()) {
		t.Fatalf("Timestamp = %v, want %v", tgt.Timestamp, mtime.Unix())
	}
}

func TestProbeMissingArtifact(t *testing.T) {
	orig := stat
	defer func() { stat = orig }()
	stat = func(path string) (os.FileInfo, error) {
		return nil, os.ErrNotExist
	}

	tgt := &target.Target{Name: "foo", Artifact: "/bin/foo"}
	Probe([]*target.Target{tgt}, config.KV{})
	if tgt.Timestamp != 0 {
		t.Fatalf("Timestamp = %v, want 0", tgt.Timestamp)
	}
}
