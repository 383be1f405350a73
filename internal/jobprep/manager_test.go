package jobprep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwlcore/gocwl/internal/fsaccess"
	"github.com/cwlcore/gocwl/internal/mutation"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPrepareStagesAndRewrites(t *testing.T) {
	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "in.txt")
	writeFile(t, srcFile, "hello")

	workDir := t.TempDir()
	mgr := New(fsaccess.NewLocal(), mutation.New(), nil)

	inputs := map[string]any{
		"in": map[string]any{
			"class":    "File",
			"location": "file://" + srcFile,
			"basename": "in.txt",
		},
	}

	prepared, err := mgr.Prepare(context.Background(), "job1", inputs, workDir, false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer mgr.Release(prepared)

	staged := filepath.Join(workDir, "in.txt")
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("expected staged file: %v", err)
	}

	got := prepared.Inputs["in"].(map[string]any)
	if got["path"] != staged {
		t.Errorf("path = %v, want %v", got["path"], staged)
	}
}

func TestPrepareRegistersMutationReaders(t *testing.T) {
	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "shared.txt")
	writeFile(t, srcFile, "data")
	loc := "file://" + srcFile

	muts := mutation.New()
	mgr := New(fsaccess.NewLocal(), muts, nil)

	inputs := map[string]any{
		"in": map[string]any{"class": "File", "location": loc, "basename": "shared.txt"},
	}

	p1, err := mgr.Prepare(context.Background(), "jobA", inputs, t.TempDir(), false)
	if err != nil {
		t.Fatalf("Prepare jobA: %v", err)
	}

	// A second reader is fine.
	p2, err := mgr.Prepare(context.Background(), "jobB", inputs, t.TempDir(), false)
	if err != nil {
		t.Fatalf("Prepare jobB (second reader): %v", err)
	}

	mgr.Release(p1)
	mgr.Release(p2)

	if g := muts.Generation(loc); g != 0 {
		t.Errorf("Generation after read-only jobs = %d, want 0", g)
	}
}

func TestPrepareMutatorConflictsWithReader(t *testing.T) {
	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "mutable.txt")
	writeFile(t, srcFile, "data")
	loc := "file://" + srcFile

	muts := mutation.New()
	mgr := New(fsaccess.NewLocal(), muts, nil)

	readerInputs := map[string]any{
		"in": map[string]any{"class": "File", "location": loc, "basename": "mutable.txt"},
	}
	mutatorInputs := map[string]any{
		"in": map[string]any{"class": "File", "location": loc, "basename": "mutable.txt", "writable": true},
	}

	reader, err := mgr.Prepare(context.Background(), "reader", readerInputs, t.TempDir(), false)
	if err != nil {
		t.Fatalf("Prepare reader: %v", err)
	}
	defer mgr.Release(reader)

	if _, err := mgr.Prepare(context.Background(), "mutator", mutatorInputs, t.TempDir(), false); err == nil {
		t.Fatal("expected mutation conflict while a reader is active")
	}
}

func TestPrepareStagesLiteralContent(t *testing.T) {
	workDir := t.TempDir()
	mgr := New(fsaccess.NewLocal(), mutation.New(), nil)

	inputs := map[string]any{
		"in": map[string]any{
			"class":    "File",
			"basename": "literal.txt",
			"contents": "generated content",
		},
	}

	prepared, err := mgr.Prepare(context.Background(), "job1", inputs, workDir, false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer mgr.Release(prepared)

	staged := filepath.Join(workDir, "literal.txt")
	b, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("expected literal file staged: %v", err)
	}
	if string(b) != "generated content" {
		t.Errorf("contents = %q, want %q", string(b), "generated content")
	}
}
