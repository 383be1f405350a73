// Command cwlcore is a thin CLI that wires together the single-tool
// loader, the job preparer, and the execution engine to run one
// CommandLineTool outside of any workflow context. It exists to exercise
// the core end-to-end, not as a general-purpose cwl-runner replacement.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cwlcore/gocwl/internal/cwlconfig"
	"github.com/cwlcore/gocwl/internal/cwllog"
	"github.com/cwlcore/gocwl/internal/execution"
	"github.com/cwlcore/gocwl/internal/exprtool"
	"github.com/cwlcore/gocwl/internal/fsaccess"
	"github.com/cwlcore/gocwl/internal/jobprep"
	"github.com/cwlcore/gocwl/internal/mutation"
	"github.com/cwlcore/gocwl/internal/toolload"
	"github.com/cwlcore/gocwl/pkg/cwl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cwlconfig.DefaultRunConfig()
	var enableS3 bool

	root := &cobra.Command{
		Use:          "cwlcore TOOL.cwl JOB.yml",
		Short:        "Run a single CWL CommandLineTool",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], args[1], cfg, enableS3)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "content-addressed output cache directory (empty disables caching)")
	flags.StringVar(&cfg.OutDir, "outdir", cfg.OutDir, "directory to execute the job and report outputs from")
	flags.StringVar(&cfg.TmpDir, "tmpdir", cfg.TmpDir, "scratch directory for staged inputs (defaults to OUTDIR/tmp)")
	flags.BoolVar(&cfg.EnableContainers, "enable-containers", cfg.EnableContainers, "permit DockerRequirement tools to run in a container")
	flags.StringVar(&cfg.ContainerRuntime, "container-runtime", cfg.ContainerRuntime, "docker|apptainer|singularity")
	flags.BoolVar(&cfg.SeparateDirs, "separate-dirs", cfg.SeparateDirs, "stage each input into its own subdirectory")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")
	flags.BoolVar(&enableS3, "enable-s3", false, "resolve s3:// input locations against the default AWS credential chain")

	return root
}

func run(ctx context.Context, toolPath, jobPath string, cfg cwlconfig.RunConfig, enableS3 bool) error {
	logger := cwllog.NewLogger(cwllog.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	loader := toolload.New(logger)
	tool, exprTool, baseDir, err := loader.LoadFile(toolPath)
	if err != nil {
		return fmt.Errorf("cwlcore: %w", err)
	}
	inputs, err := loadJob(jobPath, baseDir)
	if err != nil {
		return fmt.Errorf("cwlcore: %w", err)
	}

	if exprTool != nil {
		return runExpressionTool(exprTool, inputs, baseDir)
	}

	if cfg.TmpDir == "" {
		cfg.TmpDir = filepath.Join(cfg.OutDir, "tmp")
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("cwlcore: create outdir: %w", err)
	}
	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		return fmt.Errorf("cwlcore: create tmpdir: %w", err)
	}

	access, err := newAccess(ctx, enableS3)
	if err != nil {
		return fmt.Errorf("cwlcore: %w", err)
	}

	return runCommandLineTool(ctx, tool, inputs, baseDir, cfg, access, logger)
}

// newAccess builds the fsaccess.Access used to resolve job input
// locations. S3 support is opt-in since it reaches out to the default
// AWS credential chain at startup.
func newAccess(ctx context.Context, enableS3 bool) (fsaccess.Access, error) {
	if !enableS3 {
		return fsaccess.NewComposite(nil), nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return fsaccess.NewComposite(map[string]fsaccess.Access{
		"s3": fsaccess.NewS3(ctx, client),
	}), nil
}

func runCommandLineTool(ctx context.Context, tool *cwl.CommandLineTool, inputs map[string]any, baseDir string, cfg cwlconfig.RunConfig, access fsaccess.Access, logger *slog.Logger) error {
	muts := mutation.New()
	prep := jobprep.New(access, muts, logger)
	engine := newEngine(logger, cfg, baseDir, expressionLibOf(tool.Requirements, tool.Hints))
	runner := jobprep.NewRunner(prep, engine, cfg.CacheDir, logger)

	result, err := runner.Run(ctx, "job", tool, inputs, cfg.TmpDir, cfg.SeparateDirs)
	if err != nil {
		return fmt.Errorf("cwlcore: %w", err)
	}

	jsonPrint(result.Outputs)
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}

// runExpressionTool evaluates an ExpressionTool's expression directly,
// bypassing the job preparer and execution engine entirely: there is no
// command to stage, run, or collect outputs from, only a JS expression
// to evaluate against the (load-contents-resolved) inputs.
func runExpressionTool(tool *cwl.ExpressionTool, inputs map[string]any, baseDir string) error {
	outputs, err := exprtool.Execute(tool, inputs, exprtool.ExecuteOptions{
		ExpressionLib: expressionLibOf(tool.Requirements, tool.Hints),
		CWLDir:        baseDir,
	})
	if err != nil {
		return fmt.Errorf("cwlcore: %w", err)
	}
	jsonPrint(outputs)
	return nil
}

func newEngine(logger *slog.Logger, cfg cwlconfig.RunConfig, cwlDir string, expressionLib []string) *execution.Engine {
	var runtime execution.Runtime
	if cfg.EnableContainers {
		switch cfg.ContainerRuntime {
		case "apptainer", "singularity":
			runtime = &execution.ApptainerRuntime{}
		default:
			runtime = &execution.DockerRuntime{}
		}
	} else {
		runtime = &execution.LocalRuntime{}
	}

	return execution.NewEngine(execution.Config{
		Logger:           logger,
		Runtime:          runtime,
		ExpressionLib:    expressionLib,
		CWLDir:           cwlDir,
		EnableContainers: cfg.EnableContainers,
	})
}

// expressionLibOf extracts InlineJavascriptRequirement.expressionLib from
// a tool's raw requirements/hints maps, preferring requirements.
func expressionLibOf(requirements, hints map[string]any) []string {
	if lib := expressionLibFrom(requirements); lib != nil {
		return lib
	}
	return expressionLibFrom(hints)
}

func expressionLibFrom(m map[string]any) []string {
	raw, ok := m["InlineJavascriptRequirement"]
	if !ok {
		return nil
	}
	req, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	entries, ok := req["expressionLib"].([]any)
	if !ok {
		return nil
	}
	lib := make([]string, 0, len(entries))
	for _, e := range entries {
		if s, ok := e.(string); ok {
			lib = append(lib, s)
		}
	}
	return lib
}

func loadJob(path, baseDir string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file %s: %w", path, err)
	}
	var inputs map[string]any
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	resolved, _ := resolveJobPaths(inputs, filepath.Dir(path)).(map[string]any)
	return resolved, nil
}

// resolveJobPaths resolves relative File/Directory "path" values in a job
// document against the directory the job file was loaded from, and fills
// in "location" from "path" (or vice versa) so downstream code never has
// to special-case which one was provided.
func resolveJobPaths(v any, baseDir string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveJobPaths(item, baseDir)
		}
		if class, _ := out["class"].(string); class == "File" || class == "Directory" {
			path, _ := out["path"].(string)
			loc, _ := out["location"].(string)
			if path == "" && loc != "" {
				path = loc
			}
			if path != "" && !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			out["path"] = path
			if loc == "" {
				out["location"] = "file://" + path
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveJobPaths(item, baseDir)
		}
		return out
	default:
		return v
	}
}

func jsonPrint(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cwlcore: marshal outputs:", err)
		return
	}
	fmt.Println(string(b))
}
