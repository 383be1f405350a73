// Package pathmapper computes and owns the bijective mapping between
// host-visible file locations and the staged paths a job sees inside its
// sandbox working directory.
package pathmapper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EntryType classifies how a path-mapper entry should be materialized.
type EntryType string

const (
	File               EntryType = "File"
	Directory          EntryType = "Directory"
	WritableFile       EntryType = "WritableFile"
	WritableDirectory  EntryType = "WritableDirectory"
	CreateFile         EntryType = "CreateFile"
	CreateWritableFile EntryType = "CreateWritableFile"
)

// Entry is a single host<->staged mapping.
type Entry struct {
	Resolved string // host path (or URI) the entry originated from
	Target   string // staged path inside the sandbox
	Type     EntryType
	Staged   bool
	Checksum string // trusted "sha1$..." value carried from the originating descriptor, if any
}

func (t EntryType) Writable() bool {
	return t == WritableFile || t == WritableDirectory || t == CreateWritableFile
}

// Descriptor is the minimal shape of a File/Directory value this package
// needs to read; callers pass the wider CWL descriptor map directly since
// it already satisfies this via map[string]any accessors in the caller.
type Descriptor struct {
	Class          string
	Location       string
	Path           string
	Basename       string
	Writable       bool
	Contents       string // non-empty for literal, content-only files
	Checksum       string // trusted "sha1$..." value, if the caller already knows one
	Listing        []*Descriptor
	SecondaryFiles []*Descriptor
}

// PathMapper owns the host<->staged bijection for every file/directory
// reachable from a job's inputs, including secondaryFiles and listings.
//
// Every staged target shares the stage directory as a common prefix. With
// separateDirs, distinct locations never map to the same target; without
// it, every file is placed directly in the stage directory, so two files
// with the same basename share a target. See pathmapper_test.go.
type PathMapper struct {
	stageDir     string
	basedir      string
	separateDirs bool

	byLocation map[string]*Entry
	byTarget   map[string]string // target -> location, for reverse lookup
	order      []string          // locations, insertion order
}

// New builds a PathMapper by walking descs depth-first (Files, Directories,
// their secondaryFiles and, for Directories, their explicit listing).
func New(descs []*Descriptor, basedir, stageDir string, separateDirs bool) *PathMapper {
	pm := &PathMapper{
		stageDir:     stageDir,
		basedir:      basedir,
		separateDirs: separateDirs,
		byLocation:   make(map[string]*Entry),
		byTarget:     make(map[string]string),
	}
	for _, d := range descs {
		pm.walk(d)
	}
	return pm
}

func (pm *PathMapper) walk(d *Descriptor) {
	if d == nil {
		return
	}
	switch d.Class {
	case "File":
		pm.addFile(d)
		for _, sf := range d.SecondaryFiles {
			pm.walkAdjacent(sf, d)
		}
	case "Directory":
		pm.addDir(d)
		for _, child := range d.Listing {
			pm.walk(child)
		}
	}
}

// walkAdjacent stages a secondary file next to its primary: same target
// directory prefix as the primary's staged target.
func (pm *PathMapper) walkAdjacent(sf *Descriptor, primary *Descriptor) {
	if sf == nil {
		return
	}
	loc := key(sf)
	if _, ok := pm.byLocation[loc]; ok {
		return
	}
	primaryEntry, ok := pm.byLocation[key(primary)]
	var targetDir string
	if ok {
		targetDir = filepath.Dir(primaryEntry.Target)
	} else {
		targetDir = pm.stageDir
	}
	basename := sf.Basename
	if basename == "" {
		basename = filepath.Base(resolvedPath(sf))
	}
	target := filepath.Join(targetDir, basename)
	pm.insert(sf, target)
}

func (pm *PathMapper) addFile(d *Descriptor) {
	loc := key(d)
	if _, ok := pm.byLocation[loc]; ok {
		return
	}
	basename := d.Basename
	if basename == "" {
		basename = filepath.Base(resolvedPath(d))
	}
	var target string
	if pm.separateDirs {
		target = filepath.Join(pm.stageDir, uuid.NewString(), basename)
	} else {
		target = filepath.Join(pm.stageDir, basename)
	}
	pm.insert(d, target)
}

func (pm *PathMapper) addDir(d *Descriptor) {
	loc := key(d)
	if _, ok := pm.byLocation[loc]; ok {
		return
	}
	basename := d.Basename
	if basename == "" {
		basename = filepath.Base(resolvedPath(d))
	}
	var target string
	if pm.separateDirs {
		target = filepath.Join(pm.stageDir, uuid.NewString(), basename)
	} else {
		target = filepath.Join(pm.stageDir, basename)
	}
	pm.insert(d, target)
}

func (pm *PathMapper) insert(d *Descriptor, target string) {
	loc := key(d)
	entryType := classify(d)
	entry := &Entry{
		Resolved: resolvedPath(d),
		Target:   target,
		Type:     entryType,
		Staged:   true,
		Checksum: d.Checksum,
	}
	pm.byLocation[loc] = entry
	pm.byTarget[target] = loc
	pm.order = append(pm.order, loc)
}

func classify(d *Descriptor) EntryType {
	isDir := d.Class == "Directory"
	literal := d.Location == "" && d.Path == "" && d.Contents != ""
	switch {
	case literal && d.Writable:
		return CreateWritableFile
	case literal:
		return CreateFile
	case isDir && d.Writable:
		return WritableDirectory
	case isDir:
		return Directory
	case d.Writable:
		return WritableFile
	default:
		return File
	}
}

func key(d *Descriptor) string {
	if d.Location != "" {
		return d.Location
	}
	if d.Path != "" {
		return d.Path
	}
	return d.Basename
}

func resolvedPath(d *Descriptor) string {
	if d.Path != "" {
		return d.Path
	}
	return strings.TrimPrefix(d.Location, "file://")
}

// Mapper looks up the entry for a location. Returns an error if absent.
func (pm *PathMapper) Mapper(location string) (*Entry, error) {
	e, ok := pm.byLocation[location]
	if !ok {
		return nil, fmt.Errorf("pathmapper: no entry for location %q", location)
	}
	return e, nil
}

// Reversemap inverts a staged target back to (location, host-path). The
// second return value is false when target was never staged.
func (pm *PathMapper) Reversemap(target string) (location string, hostPath string, ok bool) {
	loc, found := pm.byTarget[target]
	if !found {
		return "", "", false
	}
	return loc, pm.byLocation[loc].Resolved, true
}

// Files returns the mapped locations in insertion order.
func (pm *PathMapper) Files() []string {
	out := make([]string, len(pm.order))
	copy(out, pm.order)
	return out
}

// Update replaces (or inserts) the entry for location.
func (pm *PathMapper) Update(location, resolved, target string, t EntryType, staged bool) {
	if old, ok := pm.byLocation[location]; ok {
		delete(pm.byTarget, old.Target)
	}
	e := &Entry{Resolved: resolved, Target: target, Type: t, Staged: staged}
	if _, existed := pm.byLocation[location]; !existed {
		pm.order = append(pm.order, location)
	}
	pm.byLocation[location] = e
	pm.byTarget[target] = location
}

// StageDir returns the sandbox stage directory this mapper was built with.
func (pm *PathMapper) StageDir() string { return pm.stageDir }
