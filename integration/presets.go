package integration

import "fmt"

// Package integration provides configuration presets for assembling the
// token layer runtime. Presets bundle resource and retention settings
// into named profiles (Lite, Full, Archive) so operators can spin up
// nodes tuned for different workloads without tweaking individual flags.
//
// Usage:
//   cfg := integration.LitePreset()    // for development
//   cfg := integration.FullPreset()    // for production followers
//   cfg := integration.ArchivePreset() // for explorers and analytics
//
// Each preset returns a PresetConfig struct that is merged into the
// launcher's main config during node initialization.

// PresetConfig captures the tunable parameters that vary across preset
// profiles. It intentionally excludes fields that are always the same
// (network IDs, RPC ports) so presets focus on resource trade-offs.
type PresetConfig struct {
	Name             string // human-readable identifier (e.g., "lite", "full")
	CacheMB          int    // memory allocated to internal caches
	OutcomeRetention int    // connected blocks kept reversible for reorg handling (0 = unlimited)
	EnableMetrics    bool   // whether to expose metrics endpoints
	EnableLightKDF   bool   // use faster (weaker) key derivation for keystore passwords
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:             "default",
		CacheMB:          1024, // enough for moderate workloads
		OutcomeRetention: 1000, // deep enough for any realistic host-chain reorg
		EnableMetrics:    false,
		EnableLightKDF:   false,
	}
}

// LitePreset returns a lightweight configuration optimized for
// development, testing, and low-resource environments.
//
// Use cases:
//   - Local development
//   - CI pipelines with limited resources
//   - Disposable fake-network nodes
//
// Trade-offs:
//   - Small caches slow catch-up on long chains
//   - Light KDF weakens keystore security (never use for production keys)
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.CacheMB = 256
	cfg.OutcomeRetention = 100 // shallow reorg coverage is enough for test chains
	cfg.EnableMetrics = true   // metrics help diagnose issues during development
	cfg.EnableLightKDF = true  // faster key derivation speeds up testing
	return cfg
}

// FullPreset returns a production configuration for follower nodes
// serving live queries. It maximizes caching and enables monitoring
// while keeping strong security defaults.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 4096
	cfg.OutcomeRetention = 1000
	cfg.EnableMetrics = true
	cfg.EnableLightKDF = false
	return cfg
}

// ArchivePreset returns a configuration for explorers and analytics
// platforms that query historical transaction outcomes. Retention is
// unlimited, so every processed transaction stays queryable at the cost
// of memory growing with chain length.
func ArchivePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "archive"
	cfg.CacheMB = 8192
	cfg.OutcomeRetention = 0 // never forget an outcome
	cfg.EnableMetrics = true
	cfg.EnableLightKDF = false
	return cfg
}

// GetPresetByName looks up a preset by its string identifier. This
// helper enables CLI flags like --preset=full to select configurations
// dynamically.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset merges a preset configuration into an existing one. Fields
// set in the preset override the corresponding values in the target, so
// presets can be applied on top of CLI overrides without clobbering
// unrelated settings.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	// retention zero means unlimited, which is a deliberate choice, so
	// it is always applied
	target.OutcomeRetention = preset.OutcomeRetention
	target.EnableMetrics = preset.EnableMetrics
	target.EnableLightKDF = preset.EnableLightKDF
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
