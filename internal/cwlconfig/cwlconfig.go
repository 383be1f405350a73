// Package cwlconfig holds the plain, exported run configuration for the
// single-tool execution core, following the teacher's server-config idiom:
// a struct with sane defaults, no flag-binding or viper-style framework.
package cwlconfig

// RunConfig configures a single Prepare/Run/Collect invocation of the core.
type RunConfig struct {
	// CacheDir, when non-empty, enables the content-addressed output
	// cache. Empty disables caching entirely.
	CacheDir string

	// OutDir is where a job's final outputs are reported from.
	OutDir string

	// TmpDir is the scratch directory used for intermediate/staged files.
	TmpDir string

	// EnableContainers permits DockerRequirement jobs to run in a
	// container. When false, any tool that requires a container fails
	// with ErrUnsupportedRequirement.
	EnableContainers bool

	// ContainerRuntime names a container backend: "docker", "apptainer",
	// "singularity", or "udocker". The engine's dispatch does not consult
	// it; a container job always runs through the Docker path.
	ContainerRuntime string

	// StrictBasenames is carried in the configuration but no code reads
	// it; basenames are not validated whatever its value.
	StrictBasenames bool

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// LogFormat is "text" or "json".
	LogFormat string

	// SeparateDirs stages each file/directory input into its own
	// randomly-named subdirectory of TmpDir rather than flattening them
	// into a single directory, avoiding basename collisions.
	SeparateDirs bool
}

// DefaultRunConfig returns a RunConfig suitable for local, uncached,
// container-free execution.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		CacheDir:         "",
		OutDir:           ".",
		TmpDir:           "",
		EnableContainers: false,
		ContainerRuntime: "docker",
		StrictBasenames:  true,
		LogLevel:         "info",
		LogFormat:        "text",
		SeparateDirs:     true,
	}
}
