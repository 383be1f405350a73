package jobprep

import (
	"os"

	"github.com/cwlcore/gocwl/internal/cachekey"
	"github.com/cwlcore/gocwl/internal/cmdline"
	"github.com/cwlcore/gocwl/internal/pathmapper"
	"github.com/cwlcore/gocwl/pkg/cwl"
)

// CacheKey computes the content-addressed cache key for a prepared job:
// the resolved command line and stream bindings from cmd, the set of
// requirements that affect execution, and a fingerprint (size plus
// checksum-or-mtime) of every staged input file, keyed by its original
// host location so the key is independent of where it happened to be
// staged.
func CacheKey(tool *cwl.CommandLineTool, p *Prepared, cmd *cmdline.BuildResult) (string, error) {
	in := cachekey.Input{
		CommandLine:  cmd.Command,
		Stdin:        cmd.Stdin,
		Stdout:       cmd.Stdout,
		Stderr:       cmd.Stderr,
		Files:        fileFingerprints(p.Mapper),
		Requirements: interestingRequirements(tool),
	}
	return cachekey.Key(in)
}

func interestingRequirements(tool *cwl.CommandLineTool) map[string]any {
	out := make(map[string]any)
	for _, name := range cachekey.InterestingRequirements {
		if tool.Requirements != nil {
			if v, ok := tool.Requirements[name]; ok {
				out[name] = v
				continue
			}
		}
		if tool.Hints != nil {
			if v, ok := tool.Hints[name]; ok {
				out[name] = v
			}
		}
	}
	return out
}

func fileFingerprints(mapper *pathmapper.PathMapper) map[string]cachekey.FileFingerprint {
	out := make(map[string]cachekey.FileFingerprint)
	for _, loc := range mapper.Files() {
		entry, err := mapper.Mapper(loc)
		if err != nil || entry.Type == pathmapper.Directory || entry.Type == pathmapper.WritableDirectory {
			continue
		}
		info, statErr := os.Stat(entry.Resolved)
		if statErr != nil {
			continue
		}
		out[loc] = cachekey.FileFingerprint{
			Size:      info.Size(),
			ModTimeMs: info.ModTime().UnixMilli(),
			Checksum:  entry.Checksum,
		}
	}
	return out
}
