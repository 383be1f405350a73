// Package cachekey computes the content-addressed cache key for a job:
// an MD5 digest over a canonical JSON serialization of the resolved
// command line, stream bindings, per-input-file fingerprints, and the
// set of requirements that affect execution.
package cachekey

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// InterestingRequirements is the set of requirement/hint classes whose
// presence affects the cache key. Only the LAST occurrence of each (by
// construction order, matching requirements-then-hints precedence) is
// included.
var InterestingRequirements = []string{
	"DockerRequirement",
	"EnvVarRequirement",
	"InitialWorkDirRequirement",
	"ShellCommandRequirement",
	"NetworkAccess",
}

// FileFingerprint is the [size, checksum-or-mtime] pair recorded per
// input file. Checksum is preferred when the descriptor already carries
// a trusted "sha1$..." value; otherwise ModTimeMs is used.
type FileFingerprint struct {
	Size      int64
	Checksum  string
	ModTimeMs int64
}

// Input is the full set of material that determines a job's cache key.
type Input struct {
	CommandLine []string
	Stdin       string
	Stdout      string
	Stderr      string
	Files       map[string]FileFingerprint // keyed by location, for determinism
	Requirements map[string]any            // keyed by class name, last-occurrence wins
}

// canonical builds the exact structure that gets serialized, with map
// keys that encoding/json will emit in sorted order (Go always sorts
// map[string]X keys when marshaling) and no extraneous whitespace.
func (in Input) canonical() map[string]any {
	files := make(map[string]any, len(in.Files))
	for loc, fp := range in.Files {
		if fp.Checksum != "" {
			files[loc] = []any{fp.Size, fp.Checksum}
		} else {
			files[loc] = []any{fp.Size, fp.ModTimeMs}
		}
	}

	reqs := make(map[string]any)
	for _, name := range InterestingRequirements {
		if v, ok := in.Requirements[name]; ok {
			reqs[name] = v
		}
	}

	return map[string]any{
		"commandLine":  in.CommandLine,
		"stdin":        in.Stdin,
		"stdout":       in.Stdout,
		"stderr":       in.Stderr,
		"files":        files,
		"requirements": reqs,
	}
}

// Canonical returns the canonical JSON bytes (sorted keys, compact
// separators) that Key hashes. Exposed for tests that want to assert on
// determinism directly.
func Canonical(in Input) ([]byte, error) {
	// encoding/json sorts map[string]any keys automatically; Marshal
	// (not MarshalIndent) gives compact separators.
	return json.Marshal(in.canonical())
}

// Key computes the MD5 digest of the canonical JSON serialization of in,
// as a lowercase hex string.
func Key(in Input) (string, error) {
	b, err := Canonical(in)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}
