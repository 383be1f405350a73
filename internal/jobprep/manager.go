// Package jobprep prepares a CWL job's filesystem view before execution:
// it stages every File/Directory input into the job's sandbox through a
// pathmapper.PathMapper, registers readers/mutators with the shared
// mutation.Manager so concurrent in-place updates of a shared input are
// never silently interleaved, and exposes a content-addressed cache
// lookup so an execution engine can be skipped entirely on a hit.
package jobprep

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/cwlcore/gocwl/internal/fsaccess"
	"github.com/cwlcore/gocwl/internal/mutation"
	"github.com/cwlcore/gocwl/internal/pathmapper"
)

// Manager prepares jobs against a single mutation registry and a single
// filesystem access capability. It is safe for concurrent use by multiple
// jobs; mutation.Manager itself serializes the registration bookkeeping.
type Manager struct {
	access    fsaccess.Access
	mutations *mutation.Manager
	logger    *slog.Logger
}

func New(access fsaccess.Access, mutations *mutation.Manager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{access: access, mutations: mutations, logger: logger.With("component", "jobprep")}
}

// Prepared is the result of Prepare: a staged input map ready to hand to
// the execution engine, plus the bookkeeping needed to release mutation
// registrations once the job finishes.
type Prepared struct {
	JobID  string
	Mapper *pathmapper.PathMapper
	Inputs map[string]any

	registered []readerOrMutator
}

type readerOrMutator struct {
	location string
	mutator  bool
}

// Prepare stages every File/Directory input reachable from inputs into
// workDir (through mapper), registers each location with the mutation
// manager (as a mutator when CWL marked it writable, a reader otherwise),
// and returns a copy of inputs with every File/Directory "path"/"location"
// rewritten to the staged target. If any registration or staging step
// fails, every registration already made for this job is released before
// the error is returned.
func (m *Manager) Prepare(ctx context.Context, jobID string, inputs map[string]any, workDir string, separateDirs bool) (*Prepared, error) {
	descs := collectDescriptors(inputs)
	mapper := pathmapper.New(descs, workDir, workDir, separateDirs)

	byKey := make(map[string]*pathmapper.Descriptor, len(descs))
	indexDescriptors(descs, byKey)

	p := &Prepared{JobID: jobID, Mapper: mapper}

	for _, loc := range mapper.Files() {
		entry, err := mapper.Mapper(loc)
		if err != nil {
			return nil, err
		}

		mutator := entry.Type.Writable()
		if m.mutations != nil {
			var regErr error
			if mutator {
				regErr = m.mutations.RegisterMutation(jobID, loc)
			} else {
				regErr = m.mutations.RegisterReader(jobID, loc)
			}
			if regErr != nil {
				m.releaseAll(jobID, p.registered)
				return nil, &PrepareError{Phase: "register " + loc, Err: regErr}
			}
			p.registered = append(p.registered, readerOrMutator{location: loc, mutator: mutator})
		}

		if err := m.stageEntry(ctx, entry, byKey[loc]); err != nil {
			m.releaseAll(jobID, p.registered)
			return nil, &PrepareError{Phase: "stage " + loc, Err: err}
		}
	}

	p.Inputs = rewriteInputs(inputs, mapper)
	return p, nil
}

// Release clears every reader/mutator registration Prepare made for this
// job. Callers must call this exactly once per successful Prepare, in a
// deferred block so it runs even if execution fails.
func (m *Manager) Release(p *Prepared) {
	if p == nil || m.mutations == nil {
		return
	}
	m.releaseAll(p.JobID, p.registered)
}

func (m *Manager) releaseAll(jobID string, regs []readerOrMutator) {
	for _, r := range regs {
		if r.mutator {
			m.mutations.ReleaseMutation(jobID, r.location)
		} else {
			m.mutations.ReleaseReader(jobID, r.location)
		}
	}
}

func indexDescriptors(descs []*pathmapper.Descriptor, out map[string]*pathmapper.Descriptor) {
	for _, d := range descs {
		out[descKey(d)] = d
		indexDescriptors(d.SecondaryFiles, out)
		indexDescriptors(d.Listing, out)
	}
}

func descKey(d *pathmapper.Descriptor) string {
	if d.Location != "" {
		return d.Location
	}
	if d.Path != "" {
		return d.Path
	}
	return d.Basename
}

// stageEntry materializes a single mapped entry at entry.Target.
func (m *Manager) stageEntry(ctx context.Context, entry *pathmapper.Entry, desc *pathmapper.Descriptor) error {
	switch entry.Type {
	case pathmapper.Directory, pathmapper.WritableDirectory:
		return os.MkdirAll(entry.Target, 0o755)
	case pathmapper.CreateFile, pathmapper.CreateWritableFile:
		if err := os.MkdirAll(filepath.Dir(entry.Target), 0o755); err != nil {
			return err
		}
		contents := ""
		if desc != nil {
			contents = desc.Contents
		}
		return os.WriteFile(entry.Target, []byte(contents), 0o644)
	default: // File, WritableFile
		if err := os.MkdirAll(filepath.Dir(entry.Target), 0o755); err != nil {
			return err
		}
		return m.copyIn(ctx, entry.Resolved, entry.Target)
	}
}

func (m *Manager) copyIn(_ context.Context, location, dest string) error {
	src, err := m.access.Open(location)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := io.Copy(out, src)
	if err != nil {
		return err
	}
	m.logger.Debug("staged input", "location", location, "target", dest, "size", humanize.Bytes(uint64(n)))
	return nil
}

// rewriteInputs returns a deep copy of inputs with every File/Directory
// "path" and "location" rewritten to its staged target.
func rewriteInputs(v any, mapper *pathmapper.PathMapper) map[string]any {
	out, _ := rewriteValue(v, mapper).(map[string]any)
	return out
}

func rewriteValue(v any, mapper *pathmapper.PathMapper) any {
	switch val := v.(type) {
	case map[string]any:
		class, _ := val["class"].(string)
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = rewriteValue(item, mapper)
		}
		if class == "File" || class == "Directory" {
			loc := stringOf(val["location"])
			if loc == "" {
				loc = stringOf(val["path"])
			}
			if loc == "" {
				loc = stringOf(val["basename"])
			}
			if entry, err := mapper.Mapper(loc); err == nil {
				out["path"] = entry.Target
				out["location"] = "file://" + entry.Target
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = rewriteValue(item, mapper)
		}
		return out
	default:
		return v
	}
}
