package jobprep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwlcore/gocwl/internal/cmdline"
	"github.com/cwlcore/gocwl/internal/fsaccess"
	"github.com/cwlcore/gocwl/internal/mutation"
	"github.com/cwlcore/gocwl/pkg/cwl"
)

func prepareWithChecksum(t *testing.T, srcFile string, checksum string) *Prepared {
	t.Helper()
	mgr := New(fsaccess.NewLocal(), mutation.New(), nil)
	input := map[string]any{
		"class":    "File",
		"location": "file://" + srcFile,
		"basename": "in.txt",
	}
	if checksum != "" {
		input["checksum"] = checksum
	}
	prepared, err := mgr.Prepare(context.Background(), "job1", map[string]any{"in": input}, t.TempDir(), false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return prepared
}

func TestCacheKeyStableAcrossMtimeWhenChecksumKnown(t *testing.T) {
	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "in.txt")
	writeFile(t, srcFile, "hello")

	tool := &cwl.CommandLineTool{BaseCommand: []string{"true"}}
	cmdResult := &cmdline.BuildResult{Command: []string{"true"}}

	p1 := prepareWithChecksum(t, srcFile, "sha1$aaaabbbbccccdddd")
	key1, err := CacheKey(tool, p1, cmdResult)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}

	// Change the file's mtime without changing its content or checksum.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(srcFile, future, future); err != nil {
		t.Fatal(err)
	}

	p2 := prepareWithChecksum(t, srcFile, "sha1$aaaabbbbccccdddd")
	key2, err := CacheKey(tool, p2, cmdResult)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}

	if key1 != key2 {
		t.Errorf("cache key changed despite an unchanged trusted checksum: %s vs %s", key1, key2)
	}
}

func TestCacheKeyChangesWithMtimeWhenNoChecksum(t *testing.T) {
	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "in.txt")
	writeFile(t, srcFile, "hello")

	tool := &cwl.CommandLineTool{BaseCommand: []string{"true"}}
	cmdResult := &cmdline.BuildResult{Command: []string{"true"}}

	p1 := prepareWithChecksum(t, srcFile, "")
	key1, err := CacheKey(tool, p1, cmdResult)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(srcFile, future, future); err != nil {
		t.Fatal(err)
	}

	p2 := prepareWithChecksum(t, srcFile, "")
	key2, err := CacheKey(tool, p2, cmdResult)
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}

	if key1 == key2 {
		t.Error("expected cache key to change with mtime when no trusted checksum is known")
	}
}
