package policy

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// defaultMaxOpCount is Script's consensus op-count ceiling (MAX_OPS_PER_SCRIPT).
	defaultMaxOpCount = 201

	// MaxOpCountEnv overrides CompilerConfig.MaxOpCount from the environment.
	MaxOpCountEnv = "MINISCRIPT_MAX_OP_COUNT"

	// CacheDirEnv sets CompilerConfig.CacheDir from the environment.
	CacheDirEnv = "MINISCRIPT_CACHE_DIR"
)

// CompilerConfig controls the resource limits and caching behavior of a
// Compiler. Adapted from the teacher's environment-variable configuration
// pattern, stripped of every network/node-specific field.
type CompilerConfig struct {
	MaxOpCount int
	// CacheDir names a directory for an on-disk cache. Compiler does not
	// read it and keeps only its in-memory cache; DiskCache is opened
	// separately through OpenDiskCache.
	CacheDir string
}

// DefaultCompilerConfig returns the consensus-accurate op-count ceiling
// with an empty CacheDir.
func DefaultCompilerConfig() *CompilerConfig {
	return &CompilerConfig{MaxOpCount: defaultMaxOpCount}
}

// LoadCompilerConfig builds a CompilerConfig from the environment, falling
// back to defaults for anything unset.
func LoadCompilerConfig() (*CompilerConfig, error) {
	cfg := DefaultCompilerConfig()

	if v := os.Getenv(MaxOpCountEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: invalid op count %q", MaxOpCountEnv, v)
		}
		cfg.MaxOpCount = n
	}

	cfg.CacheDir = os.Getenv(CacheDirEnv)

	return cfg, nil
}
