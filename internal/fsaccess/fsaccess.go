// Package fsaccess abstracts filesystem operations behind a narrow
// capability interface so the core never has to reason about whether a
// location is a local path, an in-memory fixture, or a remote object.
package fsaccess

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Access is the capability surface the core uses instead of touching the
// filesystem directly. Implementations may be local, remote, or in-memory.
type Access interface {
	Exists(location string) bool
	IsFile(location string) bool
	IsDir(location string) bool
	Size(location string) (int64, error)
	Open(location string) (io.ReadCloser, error)
	Glob(pattern string) ([]string, error)
	Join(a, b string) string
	ListDir(location string) ([]string, error)
}

// Local implements Access against the host filesystem.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func toPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

func (l *Local) Exists(location string) bool {
	_, err := os.Stat(toPath(location))
	return err == nil
}

func (l *Local) IsFile(location string) bool {
	info, err := os.Stat(toPath(location))
	return err == nil && !info.IsDir()
}

func (l *Local) IsDir(location string) bool {
	info, err := os.Stat(toPath(location))
	return err == nil && info.IsDir()
}

func (l *Local) Size(location string) (int64, error) {
	info, err := os.Stat(toPath(location))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) Open(location string) (io.ReadCloser, error) {
	return os.Open(toPath(location))
}

func (l *Local) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (l *Local) Join(a, b string) string {
	return filepath.Join(toPath(a), b)
}

func (l *Local) ListDir(location string) ([]string, error) {
	entries, err := os.ReadDir(toPath(location))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Memory is an in-memory Access implementation used by tests and dry runs.
type Memory struct {
	Files map[string][]byte
	Dirs  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{Files: make(map[string][]byte), Dirs: make(map[string]bool)}
}

func (m *Memory) key(location string) string { return toPath(location) }

func (m *Memory) Exists(location string) bool {
	k := m.key(location)
	_, ok := m.Files[k]
	return ok || m.Dirs[k]
}

func (m *Memory) IsFile(location string) bool {
	_, ok := m.Files[m.key(location)]
	return ok
}

func (m *Memory) IsDir(location string) bool {
	return m.Dirs[m.key(location)]
}

func (m *Memory) Size(location string) (int64, error) {
	b, ok := m.Files[m.key(location)]
	if !ok {
		return 0, fs.ErrNotExist
	}
	return int64(len(b)), nil
}

func (m *Memory) Open(location string) (io.ReadCloser, error) {
	b, ok := m.Files[m.key(location)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}

func (m *Memory) Glob(pattern string) ([]string, error) {
	var out []string
	for k := range m.Files {
		if ok, _ := filepath.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Join(a, b string) string {
	return filepath.Join(m.key(a), b)
}

func (m *Memory) ListDir(location string) ([]string, error) {
	prefix := m.key(location) + "/"
	var names []string
	for k := range m.Files {
		if strings.HasPrefix(k, prefix) && !strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}
