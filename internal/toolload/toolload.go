// Package toolload loads a single CWL CommandLineTool or ExpressionTool
// document into the typed pkg/cwl structs. It intentionally stops at the
// single-document boundary: no $graph, no Workflow, no step-to-step
// dependency resolution. It exists to exercise the core end-to-end from a
// YAML/JSON file on disk, not to replace a general CWL document loader.
package toolload

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwlcore/gocwl/pkg/cwl"
	"gopkg.in/yaml.v3"
)

// Loader parses a single-tool CWL document from disk.
type Loader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "toolload")}
}

// LoadFile reads path, resolves any $import directives relative to its
// directory, and parses the result as a single CommandLineTool or
// ExpressionTool. The returned baseDir is the directory the document was
// loaded from, for resolving relative default File/Directory locations.
func (l *Loader) LoadFile(path string) (tool *cwl.CommandLineTool, exprTool *cwl.ExpressionTool, baseDir string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("toolload: read %s: %w", path, err)
	}
	baseDir = filepath.Dir(path)

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, "", fmt.Errorf("toolload: parse %s: %w", path, err)
	}

	resolved, err := resolveImports(raw, baseDir)
	if err != nil {
		return nil, nil, "", fmt.Errorf("toolload: resolve imports: %w", err)
	}
	raw = resolved.(map[string]any)

	class := cwl.Document(raw).Class()
	switch class {
	case "CommandLineTool":
		t, err := parseTool(raw)
		return t, nil, baseDir, err
	case "ExpressionTool":
		t, err := parseExpressionTool(raw)
		return nil, t, baseDir, err
	default:
		return nil, nil, "", fmt.Errorf("toolload: unsupported class %q (only CommandLineTool and ExpressionTool are loaded directly)", class)
	}
}

func resolveImports(v any, baseDir string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if importPath, ok := val["$import"].(string); ok && len(val) == 1 {
			fullPath := importPath
			if !filepath.IsAbs(importPath) {
				fullPath = filepath.Join(baseDir, importPath)
			}
			data, err := os.ReadFile(fullPath)
			if err != nil {
				return nil, fmt.Errorf("read import %q: %w", importPath, err)
			}
			var imported any
			if err := yaml.Unmarshal(data, &imported); err != nil {
				return nil, fmt.Errorf("parse import %q: %w", importPath, err)
			}
			return resolveImports(imported, filepath.Dir(fullPath))
		}
		result := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveImports(item, baseDir)
			if err != nil {
				return nil, err
			}
			result[k] = resolved
		}
		return result, nil
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveImports(item, baseDir)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	default:
		return v, nil
	}
}

func parseTool(raw map[string]any) (*cwl.CommandLineTool, error) {
	tool := &cwl.CommandLineTool{
		ID:           stringField(raw, "id"),
		Class:        stringField(raw, "class"),
		CWLVersion:   stringField(raw, "cwlVersion"),
		Doc:          stringField(raw, "doc"),
		Label:        stringField(raw, "label"),
		BaseCommand:  raw["baseCommand"],
		Hints:        normalizeHintsToMap(raw["hints"]),
		Requirements: normalizeHintsToMap(raw["requirements"]),
		Stdin:        stringField(raw, "stdin"),
		Stdout:       stringField(raw, "stdout"),
		Stderr:       stringField(raw, "stderr"),
		Inputs:       make(map[string]cwl.ToolInputParam),
		Outputs:      make(map[string]cwl.ToolOutputParam),
	}

	if args, ok := raw["arguments"].([]any); ok {
		for _, arg := range args {
			switch a := arg.(type) {
			case string:
				tool.Arguments = append(tool.Arguments, cwl.ArgumentEntry{StringValue: a, IsString: true})
			case map[string]any:
				parsedArg := parseArgument(a)
				tool.Arguments = append(tool.Arguments, cwl.ArgumentEntry{Binding: &parsedArg, IsString: false})
			}
		}
	}

	tool.SuccessCodes = intSlice(raw, "successCodes")
	tool.TemporaryFailCodes = intSlice(raw, "temporaryFailCodes")
	tool.PermanentFailCodes = intSlice(raw, "permanentFailCodes")

	inputs := normalizeToMap(raw["inputs"])
	for id, v := range inputs {
		switch val := v.(type) {
		case string:
			tool.Inputs[id] = cwl.ToolInputParam{Type: val}
		case map[string]any:
			tool.Inputs[id] = parseToolInput(val)
		}
	}

	outputs := normalizeToMap(raw["outputs"])
	for id, v := range outputs {
		switch val := v.(type) {
		case string:
			tool.Outputs[id] = cwl.ToolOutputParam{Type: val}
		case map[string]any:
			tool.Outputs[id] = parseToolOutput(val)
		}
	}

	return tool, nil
}

func parseExpressionTool(raw map[string]any) (*cwl.ExpressionTool, error) {
	tool := &cwl.ExpressionTool{
		ID:           stringField(raw, "id"),
		Class:        stringField(raw, "class"),
		CWLVersion:   stringField(raw, "cwlVersion"),
		Doc:          stringField(raw, "doc"),
		Label:        stringField(raw, "label"),
		Expression:   stringField(raw, "expression"),
		Hints:        normalizeHintsToMap(raw["hints"]),
		Requirements: normalizeHintsToMap(raw["requirements"]),
		Inputs:       make(map[string]cwl.ToolInputParam),
		Outputs:      make(map[string]cwl.ExpressionToolOutputParam),
	}

	inputs := normalizeToMap(raw["inputs"])
	for id, v := range inputs {
		switch val := v.(type) {
		case string:
			tool.Inputs[id] = cwl.ToolInputParam{Type: val}
		case map[string]any:
			tool.Inputs[id] = parseToolInput(val)
		}
	}

	outputs := normalizeToMap(raw["outputs"])
	for id, v := range outputs {
		switch val := v.(type) {
		case string:
			tool.Outputs[id] = cwl.ExpressionToolOutputParam{Type: val}
		case map[string]any:
			tool.Outputs[id] = cwl.ExpressionToolOutputParam{
				Type:   stringField(val, "type"),
				Doc:    stringField(val, "doc"),
				Label:  stringField(val, "label"),
				Format: val["format"],
			}
		}
	}

	return tool, nil
}

func parseToolInput(val map[string]any) cwl.ToolInputParam {
	typeStr := stringField(val, "type")
	if typeStr == "" {
		typeStr = serializeCWLType(val["type"])
	}

	inp := cwl.ToolInputParam{
		Type:         typeStr,
		Doc:          stringField(val, "doc"),
		Label:        stringField(val, "label"),
		Default:      val["default"],
		Format:       val["format"],
		Streamable:   boolField(val, "streamable"),
		LoadContents: boolField(val, "loadContents"),
		LoadListing:  stringField(val, "loadListing"),
	}

	if ib, ok := val["inputBinding"].(map[string]any); ok {
		inp.InputBinding = parseInputBinding(ib)
	}

	if typeMap, ok := val["type"].(map[string]any); ok {
		if typeMap["type"] == "array" {
			if itemIB, ok := typeMap["inputBinding"].(map[string]any); ok {
				inp.ItemInputBinding = parseInputBinding(itemIB)
			}
		}
		if typeMap["type"] == "record" {
			inp.RecordFields = parseRecordFields(typeMap["fields"])
		}
	}

	inp.SecondaryFiles = parseSecondaryFiles(val["secondaryFiles"])

	return inp
}

func parseToolOutput(m map[string]any) cwl.ToolOutputParam {
	out := cwl.ToolOutputParam{
		Type:       stringField(m, "type"),
		Doc:        stringField(m, "doc"),
		Label:      stringField(m, "label"),
		Format:     m["format"],
		Streamable: boolField(m, "streamable"),
	}

	if ob, ok := m["outputBinding"].(map[string]any); ok {
		out.OutputBinding = parseOutputBinding(ob)
	}

	out.SecondaryFiles = parseSecondaryFiles(m["secondaryFiles"])

	if typeMap, ok := m["type"].(map[string]any); ok {
		if typeStr, ok := typeMap["type"].(string); ok && typeStr == "record" {
			out.Type = "record"
			out.OutputRecordFields = parseOutputRecordFields(typeMap["fields"])
		}
	}

	return out
}

func parseOutputRecordFields(v any) []cwl.OutputRecordField {
	if v == nil {
		return nil
	}
	var fields []cwl.OutputRecordField
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if fm, ok := item.(map[string]any); ok {
				fields = append(fields, parseOutputRecordField(fm))
			}
		}
	case map[string]any:
		for name, field := range val {
			if fm, ok := field.(map[string]any); ok {
				f := parseOutputRecordField(fm)
				f.Name = name
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func parseOutputRecordField(m map[string]any) cwl.OutputRecordField {
	field := cwl.OutputRecordField{
		Name:  stringField(m, "name"),
		Doc:   stringField(m, "doc"),
		Label: stringField(m, "label"),
	}

	if typeStr, ok := m["type"].(string); ok {
		field.Type = typeStr
	} else {
		field.Type = serializeCWLType(m["type"])
	}

	if ob, ok := m["outputBinding"].(map[string]any); ok {
		field.OutputBinding = parseOutputBinding(ob)
	}

	field.SecondaryFiles = parseSecondaryFiles(m["secondaryFiles"])

	return field
}

func parseInputBinding(ib map[string]any) *cwl.InputBinding {
	binding := &cwl.InputBinding{
		Prefix:        stringField(ib, "prefix"),
		ItemSeparator: stringField(ib, "itemSeparator"),
		ValueFrom:     stringField(ib, "valueFrom"),
		LoadContents:  boolField(ib, "loadContents"),
	}

	if pos, ok := ib["position"]; ok {
		switch p := pos.(type) {
		case int:
			binding.Position = p
		case float64:
			binding.Position = int(p)
		case string:
			binding.Position = p
		}
	}

	if sep, ok := ib["separate"]; ok {
		if b, ok := sep.(bool); ok {
			binding.Separate = &b
		}
	}

	if sq, ok := ib["shellQuote"]; ok {
		if b, ok := sq.(bool); ok {
			binding.ShellQuote = &b
		}
	}

	return binding
}

func parseRecordFields(fields any) []cwl.RecordField {
	if fields == nil {
		return nil
	}
	var result []cwl.RecordField
	switch f := fields.(type) {
	case []any:
		for _, item := range f {
			if fieldMap, ok := item.(map[string]any); ok {
				result = append(result, parseRecordField(fieldMap))
			}
		}
	case map[string]any:
		for name, val := range f {
			if fieldMap, ok := val.(map[string]any); ok {
				field := parseRecordField(fieldMap)
				field.Name = name
				result = append(result, field)
			}
		}
	}
	return result
}

func parseRecordField(m map[string]any) cwl.RecordField {
	field := cwl.RecordField{
		Name:  stringField(m, "name"),
		Type:  serializeCWLType(m["type"]),
		Doc:   stringField(m, "doc"),
		Label: stringField(m, "label"),
	}

	if ib, ok := m["inputBinding"].(map[string]any); ok {
		field.InputBinding = parseInputBinding(ib)
	}

	return field
}

func parseOutputBinding(ob map[string]any) *cwl.OutputBinding {
	binding := &cwl.OutputBinding{
		LoadContents: boolField(ob, "loadContents"),
		LoadListing:  stringField(ob, "loadListing"),
		OutputEval:   stringField(ob, "outputEval"),
	}

	if glob, ok := ob["glob"]; ok {
		binding.Glob = glob
	}

	return binding
}

func parseArgument(a map[string]any) cwl.Argument {
	arg := cwl.Argument{
		Prefix:    stringField(a, "prefix"),
		ValueFrom: stringField(a, "valueFrom"),
	}

	if pos, ok := a["position"]; ok {
		switch p := pos.(type) {
		case int:
			arg.Position = p
		case float64:
			arg.Position = int(p)
		case string:
			arg.Position = p
		}
	}

	if sep, ok := a["separate"]; ok {
		if b, ok := sep.(bool); ok {
			arg.Separate = &b
		}
	}

	if sq, ok := a["shellQuote"]; ok {
		if b, ok := sq.(bool); ok {
			arg.ShellQuote = &b
		}
	}

	return arg
}

func parseSecondaryFiles(v any) []cwl.SecondaryFileSchema {
	if v == nil {
		return nil
	}
	var result []cwl.SecondaryFileSchema
	switch sf := v.(type) {
	case string:
		result = append(result, cwl.SecondaryFileSchema{Pattern: sf})
	case []any:
		for _, item := range sf {
			switch s := item.(type) {
			case string:
				result = append(result, cwl.SecondaryFileSchema{Pattern: s})
			case map[string]any:
				result = append(result, cwl.SecondaryFileSchema{
					Pattern:  stringField(s, "pattern"),
					Required: s["required"],
				})
			}
		}
	case map[string]any:
		result = append(result, cwl.SecondaryFileSchema{
			Pattern:  stringField(sf, "pattern"),
			Required: sf["required"],
		})
	}
	return result
}

// --- raw-map helpers ---

func normalizeToMap(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		result := make(map[string]any)
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if id, ok := m["id"].(string); ok {
					result[normalizePackedID(id)] = m
				}
			}
		}
		return result
	}
	return make(map[string]any)
}

func normalizePackedID(id string) string {
	id = strings.TrimPrefix(id, "#")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func normalizeHintsToMap(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		result := make(map[string]any)
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if class, ok := m["class"].(string); ok {
					result[class] = m
				}
			}
		}
		return result
	}
	return nil
}

func serializeCWLType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		base := stringField(t, "type")
		if base == "array" {
			return serializeCWLType(t["items"]) + "[]"
		}
		if base == "record" {
			if name := stringField(t, "name"); name != "" {
				return "record:" + name
			}
			return "record"
		}
		return base
	case []any:
		for _, member := range t {
			if s, ok := member.(string); ok && s == "null" {
				continue
			}
			if inner := serializeCWLType(member); inner != "" {
				return inner + "?"
			}
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if key == "type" {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func boolField(m map[string]any, key string) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}

func intSlice(m map[string]any, key string) []int {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []int:
		return s
	case []any:
		var result []int
		for _, item := range s {
			switch i := item.(type) {
			case int:
				result = append(result, i)
			case float64:
				result = append(result, int(i))
			}
		}
		return result
	}
	return nil
}
