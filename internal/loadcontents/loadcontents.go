// Package loadcontents provides CWL loadContents functionality with 64KB limit.
// loadContents is document-only discovery, not an input-validation gate:
// a file exceeding the bound is truncated to the 64KB prefix rather than
// rejected, mirroring cwltool's content_limit_respected_read_bytes.
package loadcontents

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxSize is the maximum file size for loadContents (64KB per CWL spec).
const MaxSize = 64 * 1024

// Process loads file contents into File objects, truncating to MaxSize
// bytes for any file that exceeds it.
func Process(val any, cwlDir string) (any, error) {
	switch v := val.(type) {
	case map[string]any:
		if class, ok := v["class"].(string); ok && class == "File" {
			return processFile(v, cwlDir)
		}
		return val, nil

	case []any:
		// Process array of Files.
		result := make([]any, len(v))
		for i, item := range v {
			processed, err := Process(item, cwlDir)
			if err != nil {
				return nil, err
			}
			result[i] = processed
		}
		return result, nil

	default:
		return val, nil
	}
}

// processFile loads contents of a single File object.
func processFile(fileObj map[string]any, cwlDir string) (map[string]any, error) {
	// Get the file path.
	path := ""
	if p, ok := fileObj["path"].(string); ok {
		path = p
	} else if loc, ok := fileObj["location"].(string); ok {
		path = strings.TrimPrefix(loc, "file://")
	}
	if path == "" {
		return nil, fmt.Errorf("File object has no path or location")
	}

	// Resolve relative paths.
	if !filepath.IsAbs(path) && cwlDir != "" {
		path = filepath.Join(cwlDir, path)
	}

	content, err := readTruncated(path)
	if err != nil {
		return nil, err
	}

	// Create a copy of the map with contents added.
	result := make(map[string]any)
	for k, val := range fileObj {
		result[k] = val
	}
	result["contents"] = content
	return result, nil
}

// readTruncated reads at most MaxSize bytes from path.
func readTruncated(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, MaxSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read file contents: %w", err)
	}
	return string(buf[:n]), nil
}
