package fsaccess

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalExistsAndSize(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	l := NewLocal()
	if !l.Exists(p) {
		t.Error("expected file to exist")
	}
	if !l.IsFile(p) {
		t.Error("expected IsFile true")
	}
	if l.IsDir(p) {
		t.Error("expected IsDir false")
	}
	size, err := l.Size(p)
	if err != nil {
		t.Fatal(err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}
}

func TestLocalOpenReadsContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	os.WriteFile(p, []byte("hello"), 0644)
	l := NewLocal()
	rc, err := l.Open("file://" + p)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" {
		t.Errorf("content = %q", b)
	}
}

func TestLocalGlobSorted(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644)
	l := NewLocal()
	matches, err := l.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	if filepath.Base(matches[0]) != "a.txt" || filepath.Base(matches[1]) != "b.txt" {
		t.Errorf("matches not sorted: %v", matches)
	}
}

func TestMemoryAccess(t *testing.T) {
	m := NewMemory()
	m.Files["/virtual/a.txt"] = []byte("data")
	if !m.Exists("/virtual/a.txt") {
		t.Error("expected exists")
	}
	if !m.IsFile("/virtual/a.txt") {
		t.Error("expected is file")
	}
	rc, err := m.Open("/virtual/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "data" {
		t.Errorf("content = %q", b)
	}
}
