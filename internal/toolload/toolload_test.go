package toolload

import (
	"os"
	"path/filepath"
	"testing"
)

const echoTool = `
cwlVersion: v1.2
class: CommandLineTool
baseCommand: [echo]
inputs:
  message:
    type: string
    inputBinding:
      position: 1
outputs:
  out:
    type: stdout
stdout: out.txt
`

func writeTool(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileCommandLineTool(t *testing.T) {
	dir := t.TempDir()
	path := writeTool(t, dir, "echo.cwl", echoTool)

	tool, exprTool, baseDir, err := New(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if exprTool != nil {
		t.Fatalf("expected nil ExpressionTool, got %+v", exprTool)
	}
	if tool.Class != "CommandLineTool" {
		t.Errorf("Class = %q, want CommandLineTool", tool.Class)
	}
	if baseDir != dir {
		t.Errorf("baseDir = %q, want %q", baseDir, dir)
	}
	msgInput, ok := tool.Inputs["message"]
	if !ok {
		t.Fatal("expected input \"message\"")
	}
	if msgInput.Type != "string" {
		t.Errorf("message type = %q, want string", msgInput.Type)
	}
	if msgInput.InputBinding == nil || msgInput.InputBinding.Position != 1 {
		t.Errorf("message inputBinding.position = %v, want 1", msgInput.InputBinding)
	}
	out, ok := tool.Outputs["out"]
	if !ok || out.Type != "stdout" {
		t.Fatalf("expected output \"out\" of type stdout, got %+v", out)
	}
	if tool.Stdout != "out.txt" {
		t.Errorf("Stdout = %q, want out.txt", tool.Stdout)
	}
}

func TestLoadFileExpressionTool(t *testing.T) {
	const doc = `
cwlVersion: v1.2
class: ExpressionTool
expression: "${return {'result': inputs.x};}"
inputs:
  x: int
outputs:
  result: int
`
	dir := t.TempDir()
	path := writeTool(t, dir, "expr.cwl", doc)

	tool, exprTool, _, err := New(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tool != nil {
		t.Fatalf("expected nil CommandLineTool, got %+v", tool)
	}
	if exprTool.Inputs["x"].Type != "int" {
		t.Errorf("x type = %q, want int", exprTool.Inputs["x"].Type)
	}
	if exprTool.Outputs["result"].Type != "int" {
		t.Errorf("result type = %q, want int", exprTool.Outputs["result"].Type)
	}
}

func TestLoadFileResolvesImport(t *testing.T) {
	dir := t.TempDir()
	writeTool(t, dir, "inputs.yml", `
message:
  type: string
  inputBinding: {position: 1}
`)
	const doc = `
cwlVersion: v1.2
class: CommandLineTool
baseCommand: [echo]
inputs:
  $import: inputs.yml
outputs: {}
`
	path := writeTool(t, dir, "tool.cwl", doc)

	tool, _, _, err := New(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := tool.Inputs["message"]; !ok {
		t.Fatalf("expected imported input \"message\", got %+v", tool.Inputs)
	}
}

func TestLoadFileUnsupportedClass(t *testing.T) {
	dir := t.TempDir()
	path := writeTool(t, dir, "wf.cwl", "cwlVersion: v1.2\nclass: Workflow\n")

	if _, _, _, err := New(nil).LoadFile(path); err == nil {
		t.Fatal("expected error loading a Workflow document")
	}
}
