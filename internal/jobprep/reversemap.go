package jobprep

import "github.com/cwlcore/gocwl/internal/pathmapper"

// RemapOutputs walks a collected outputs map and, for any File/Directory
// whose "path" matches a staged target in mapper, rewrites "location" to
// the location the entry was staged from and "path" to its host path.
// This only changes
// outputs that happen to be pass-throughs of staged inputs (for example a
// File carried unmodified from an InitialWorkDirRequirement listing);
// outputs newly created by the tool never match a staged target and are
// left untouched.
func RemapOutputs(outputs map[string]any, mapper *pathmapper.PathMapper) map[string]any {
	out, _ := remapValue(outputs, mapper).(map[string]any)
	return out
}

func remapValue(v any, mapper *pathmapper.PathMapper) any {
	switch val := v.(type) {
	case map[string]any:
		class, _ := val["class"].(string)
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = remapValue(item, mapper)
		}
		if class == "File" || class == "Directory" {
			if path, ok := out["path"].(string); ok {
				if loc, hostPath, ok := mapper.Reversemap(path); ok {
					out["location"] = loc
					out["path"] = hostPath
				}
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = remapValue(item, mapper)
		}
		return out
	default:
		return v
	}
}
