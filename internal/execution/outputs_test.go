package execution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwlcore/gocwl/pkg/cwl"
)

func TestEngine_ExecuteTool_MissingRequiredSecondaryFile(t *testing.T) {
	tool := &cwl.CommandLineTool{
		ID:          "bam-tool",
		BaseCommand: []string{"touch"},
		Inputs: map[string]cwl.ToolInputParam{
			"filename": {
				Type:         "string",
				InputBinding: &cwl.InputBinding{Position: 1},
			},
		},
		Outputs: map[string]cwl.ToolOutputParam{
			"bam": {
				Type: "File",
				OutputBinding: &cwl.OutputBinding{
					Glob: "*.bam",
				},
				SecondaryFiles: []cwl.SecondaryFileSchema{
					{Pattern: ".bai", Required: true},
				},
			},
		},
	}

	inputs := map[string]any{"filename": "x.bam"}
	workDir := filepath.Join(t.TempDir(), "workdir")

	engine := NewEngine(Config{})
	_, err := engine.ExecuteTool(context.Background(), tool, inputs, workDir)
	if err == nil {
		t.Fatal("expected an error for a missing required secondary file")
	}
	if !errors.Is(err, ErrWorkflow) {
		t.Errorf("error = %v, want it to wrap ErrWorkflow", err)
	}
}

func TestEngine_ExecuteTool_OptionalSecondaryFileMissingSucceeds(t *testing.T) {
	tool := &cwl.CommandLineTool{
		ID:          "bam-tool",
		BaseCommand: []string{"touch"},
		Inputs: map[string]cwl.ToolInputParam{
			"filename": {
				Type:         "string",
				InputBinding: &cwl.InputBinding{Position: 1},
			},
		},
		Outputs: map[string]cwl.ToolOutputParam{
			"bam": {
				Type: "File",
				OutputBinding: &cwl.OutputBinding{
					Glob: "*.bam",
				},
				SecondaryFiles: []cwl.SecondaryFileSchema{
					{Pattern: ".bai"},
				},
			},
		},
	}

	inputs := map[string]any{"filename": "x.bam"}
	workDir := filepath.Join(t.TempDir(), "workdir")

	engine := NewEngine(Config{})
	result, err := engine.ExecuteTool(context.Background(), tool, inputs, workDir)
	if err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}

	outFile, ok := result.Outputs["bam"].(map[string]any)
	if !ok {
		t.Fatalf("output 'bam' not found or wrong type: %T", result.Outputs["bam"])
	}
	if _, has := outFile["secondaryFiles"]; has {
		t.Errorf("secondaryFiles should be absent when no .bai exists, got %v", outFile["secondaryFiles"])
	}
}

func TestEngine_ExecuteTool_PresentSecondaryFileAttached(t *testing.T) {
	tool := &cwl.CommandLineTool{
		ID: "bam-tool",
		BaseCommand: []string{
			"sh", "-c", "touch x.bam x.bam.bai",
		},
		Outputs: map[string]cwl.ToolOutputParam{
			"bam": {
				Type: "File",
				OutputBinding: &cwl.OutputBinding{
					Glob: "*.bam",
				},
				SecondaryFiles: []cwl.SecondaryFileSchema{
					{Pattern: ".bai", Required: true},
				},
			},
		},
	}

	workDir := filepath.Join(t.TempDir(), "workdir")

	engine := NewEngine(Config{})
	result, err := engine.ExecuteTool(context.Background(), tool, map[string]any{}, workDir)
	if err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}

	outFile, ok := result.Outputs["bam"].(map[string]any)
	if !ok {
		t.Fatalf("output 'bam' not found or wrong type: %T", result.Outputs["bam"])
	}
	secondary, ok := outFile["secondaryFiles"].([]any)
	if !ok || len(secondary) != 1 {
		t.Fatalf("secondaryFiles = %v, want one entry", outFile["secondaryFiles"])
	}
}

func TestCreateFileObject_LoadContentsTruncatesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")

	data := make([]byte, 128*1024)
	for i := range data {
		data[i] = 'a'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	obj, err := createFileObject(path, true)
	if err != nil {
		t.Fatalf("createFileObject failed: %v", err)
	}

	contents, ok := obj["contents"].(string)
	if !ok {
		t.Fatalf("contents missing or wrong type: %T", obj["contents"])
	}
	if len(contents) != 64*1024 {
		t.Errorf("len(contents) = %d, want %d (truncated, not rejected)", len(contents), 64*1024)
	}
}
