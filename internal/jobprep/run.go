package jobprep

import (
	"context"
	"log/slog"

	"github.com/cwlcore/gocwl/internal/cache"
	"github.com/cwlcore/gocwl/internal/execution"
	"github.com/cwlcore/gocwl/pkg/cwl"
)

// Runner is the cache-aware job preparer: it stages inputs through a
// Manager, consults a content-addressed cache keyed on the resolved
// command line and input fingerprints, and delegates the actual process
// execution to an execution.Engine. On a cache hit the engine never runs;
// outputs are re-derived from the previously populated cache directory.
type Runner struct {
	Prep     *Manager
	Engine   *execution.Engine
	CacheDir string // empty disables caching
	logger   *slog.Logger
}

func NewRunner(prep *Manager, engine *execution.Engine, cacheDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Prep: prep, Engine: engine, CacheDir: cacheDir, logger: logger.With("component", "jobprep")}
}

// Run prepares, caches, and executes a single CommandLineTool invocation.
func (r *Runner) Run(ctx context.Context, jobID string, tool *cwl.CommandLineTool, inputs map[string]any, workDir string, separateDirs bool) (*execution.ExecuteResult, error) {
	prepared, err := r.Prep.Prepare(ctx, jobID, inputs, workDir, separateDirs)
	if err != nil {
		return nil, err
	}
	defer r.Prep.Release(prepared)

	if r.CacheDir == "" {
		result, err := r.Engine.ExecuteTool(ctx, tool, prepared.Inputs, workDir)
		if result != nil {
			result.Outputs = RemapOutputs(result.Outputs, prepared.Mapper)
		}
		return result, err
	}

	cmdResult, err := r.Engine.BuildCommand(tool, prepared.Inputs, workDir)
	if err != nil {
		return nil, &PrepareError{Phase: "resolve_command_for_cache_key", Err: err}
	}
	key, err := CacheKey(tool, prepared, cmdResult)
	if err != nil {
		return nil, &PrepareError{Phase: "compute_cache_key", Err: err}
	}

	entry, err := cache.Lookup(r.CacheDir, key, r.logger)
	if err != nil {
		return nil, &PrepareError{Phase: "cache_lookup", Err: err}
	}

	if entry.Hit {
		defer entry.Release()
		r.logger.Info("cache hit, skipping execution", "job", jobID, "key", key)
		outputs, err := r.Engine.CollectOutputs(tool, entry.Dir, prepared.Inputs, 0)
		if err != nil {
			return nil, &PrepareError{Phase: "collect_cached_outputs", Err: err}
		}
		return &execution.ExecuteResult{
			Outputs:  RemapOutputs(outputs, prepared.Mapper),
			ExitCode: 0,
		}, nil
	}

	// Cache miss: run directly inside the cache slot so a successful run
	// leaves the entry fully populated the moment Finish writes "success".
	result, execErr := r.Engine.ExecuteTool(ctx, tool, prepared.Inputs, entry.Dir)

	status := cache.StatusPermanentFail
	if execErr == nil {
		status = cache.StatusSuccess
	}
	if finishErr := entry.Finish(status); finishErr != nil {
		r.logger.Error("failed to finalize cache entry", "key", key, "error", finishErr)
	}

	if execErr != nil {
		return result, execErr
	}
	result.Outputs = RemapOutputs(result.Outputs, prepared.Mapper)
	return result, nil
}
