package cwlconfig

import "testing"

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()
	if cfg.EnableContainers {
		t.Error("EnableContainers should default to false")
	}
	if cfg.CacheDir != "" {
		t.Error("CacheDir should default to empty (caching disabled)")
	}
	if !cfg.StrictBasenames {
		t.Error("StrictBasenames should default to true")
	}
	if cfg.ContainerRuntime != "docker" {
		t.Errorf("ContainerRuntime = %q, want docker", cfg.ContainerRuntime)
	}
}
