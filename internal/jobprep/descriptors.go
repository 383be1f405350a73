package jobprep

import (
	"sort"

	"github.com/cwlcore/gocwl/internal/pathmapper"
)

// collectDescriptors walks a job's input values and returns every File and
// Directory descriptor reachable from them, in encounter order. Nested
// records and arrays are walked recursively; secondaryFiles and directory
// listings are carried onto the returned descriptor so pathmapper.New can
// stage them adjacent to their primary.
func collectDescriptors(inputs map[string]any) []*pathmapper.Descriptor {
	var out []*pathmapper.Descriptor
	keys := sortedKeys(inputs)
	for _, k := range keys {
		out = append(out, collectFromValue(inputs[k])...)
	}
	return out
}

func collectFromValue(v any) []*pathmapper.Descriptor {
	switch val := v.(type) {
	case map[string]any:
		class, _ := val["class"].(string)
		if class == "File" || class == "Directory" {
			return []*pathmapper.Descriptor{toDescriptor(val)}
		}
		var out []*pathmapper.Descriptor
		for _, k := range sortedKeys(val) {
			out = append(out, collectFromValue(val[k])...)
		}
		return out
	case []any:
		var out []*pathmapper.Descriptor
		for _, item := range val {
			out = append(out, collectFromValue(item)...)
		}
		return out
	default:
		return nil
	}
}

// toDescriptor converts a raw CWL File/Directory map into a
// pathmapper.Descriptor, recursing into secondaryFiles and listing.
func toDescriptor(m map[string]any) *pathmapper.Descriptor {
	d := &pathmapper.Descriptor{
		Class:    stringOf(m["class"]),
		Location: stringOf(m["location"]),
		Path:     stringOf(m["path"]),
		Basename: stringOf(m["basename"]),
		Writable: boolOf(m["writable"]),
		Contents: stringOf(m["contents"]),
		Checksum: stringOf(m["checksum"]),
	}
	if sfs, ok := m["secondaryFiles"].([]any); ok {
		for _, sf := range sfs {
			if sfm, ok := sf.(map[string]any); ok {
				d.SecondaryFiles = append(d.SecondaryFiles, toDescriptor(sfm))
			}
		}
	}
	if listing, ok := m["listing"].([]any); ok {
		for _, item := range listing {
			if im, ok := item.(map[string]any); ok {
				d.Listing = append(d.Listing, toDescriptor(im))
			}
		}
	}
	return d
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic iteration order matters for mutation registration and
	// staging order; insertion order isn't preserved by Go maps so sort.
	sort.Strings(keys)
	return keys
}
