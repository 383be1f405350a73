package pathmapper

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestBijectivity(t *testing.T) {
	descs := []*Descriptor{
		{Class: "File", Location: "file:///data/a.txt", Basename: "a.txt"},
		{Class: "File", Location: "file:///data/b.txt", Basename: "b.txt"},
	}
	pm := New(descs, "/data", "/stage", true)

	for _, d := range descs {
		entry, err := pm.Mapper(d.Location)
		if err != nil {
			t.Fatalf("Mapper(%s): %v", d.Location, err)
		}
		loc, resolved, ok := pm.Reversemap(entry.Target)
		if !ok {
			t.Fatalf("Reversemap(%s) not found", entry.Target)
		}
		if loc != d.Location {
			t.Errorf("Reversemap location = %q, want %q", loc, d.Location)
		}
		if resolved != entry.Resolved {
			t.Errorf("Reversemap resolved = %q, want %q", resolved, entry.Resolved)
		}
	}
}

func TestMapperMissing(t *testing.T) {
	pm := New(nil, "/data", "/stage", true)
	if _, err := pm.Mapper("file:///nope"); err == nil {
		t.Fatal("expected error for missing location")
	}
}

func TestSeparateDirsDistinctTargets(t *testing.T) {
	descs := []*Descriptor{
		{Class: "File", Location: "file:///data/x/a.txt", Basename: "a.txt"},
		{Class: "File", Location: "file:///data/y/a.txt", Basename: "a.txt"},
	}
	pm := New(descs, "/data", "/stage", true)
	e1, _ := pm.Mapper(descs[0].Location)
	e2, _ := pm.Mapper(descs[1].Location)
	if e1.Target == e2.Target {
		t.Fatalf("distinct locations mapped to same target %q", e1.Target)
	}
	for _, e := range []*Entry{e1, e2} {
		if !strings.HasPrefix(e.Target, "/stage") {
			t.Errorf("target %q does not share stage prefix", e.Target)
		}
	}
}

func TestSharedDirWhenNotSeparate(t *testing.T) {
	descs := []*Descriptor{
		{Class: "File", Location: "file:///data/a.txt", Basename: "a.txt"},
	}
	pm := New(descs, "/data", "/stage", false)
	e, _ := pm.Mapper(descs[0].Location)
	if filepath.Dir(e.Target) != "/stage" {
		t.Errorf("target dir = %q, want /stage", filepath.Dir(e.Target))
	}
}

func TestSecondaryFileAdjacency(t *testing.T) {
	primary := &Descriptor{Class: "File", Location: "file:///data/x.bam", Basename: "x.bam"}
	sec := &Descriptor{Class: "File", Location: "file:///data/x.bam.bai", Basename: "x.bam.bai"}
	primary.SecondaryFiles = []*Descriptor{sec}
	pm := New([]*Descriptor{primary}, "/data", "/stage", true)

	pe, err := pm.Mapper(primary.Location)
	if err != nil {
		t.Fatal(err)
	}
	se, err := pm.Mapper(sec.Location)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(pe.Target) != filepath.Dir(se.Target) {
		t.Errorf("secondary file not staged adjacent to primary: %q vs %q", pe.Target, se.Target)
	}
}

func TestLiteralFileMarkedCreateFile(t *testing.T) {
	d := &Descriptor{Class: "File", Basename: "lit.txt", Contents: "hello"}
	pm := New([]*Descriptor{d}, "", "/stage", true)
	e, err := pm.Mapper(d.Basename)
	if err != nil {
		t.Fatal(err)
	}
	if e.Type != CreateFile {
		t.Errorf("type = %v, want CreateFile", e.Type)
	}
}

func TestFilesOrderMatchesInsertion(t *testing.T) {
	descs := []*Descriptor{
		{Class: "File", Location: "file:///c", Basename: "c"},
		{Class: "File", Location: "file:///a", Basename: "a"},
		{Class: "File", Location: "file:///b", Basename: "b"},
	}
	pm := New(descs, "/", "/stage", true)
	got := pm.Files()
	want := []string{"file:///c", "file:///a", "file:///b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Files()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUpdateReplacesEntry(t *testing.T) {
	pm := New(nil, "/", "/stage", true)
	pm.Update("loc1", "/host/a", "/stage/a", File, true)
	e, err := pm.Mapper("loc1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Target != "/stage/a" {
		t.Errorf("target = %q", e.Target)
	}
	pm.Update("loc1", "/host/a", "/stage/renamed", WritableFile, true)
	e, _ = pm.Mapper("loc1")
	if e.Target != "/stage/renamed" || e.Type != WritableFile {
		t.Errorf("update did not replace entry: %+v", e)
	}
	if _, _, ok := pm.Reversemap("/stage/a"); ok {
		t.Error("old target should no longer reverse-map")
	}
}
