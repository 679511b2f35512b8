package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/engine"
)

// Viper keys for confidence tuning. All are optional; unset keys fall back
// to the built-in defaults.
const (
	keyAutoAccept    = "confidence.auto_accept"
	keyForceReview   = "confidence.force_review"
	keyMeasuredScale = "confidence.measured_scale"
	keyConfidenceCap = "confidence.cap"
	keyBaselines     = "confidence.baselines"
	keyWorkers       = "classify.workers"
	keyDatabasePath  = "database.path"
)

const defaultDatabasePath = "$HOME/.local/share/propflow/propflow.db"

// DatabasePath resolves the configured database location, expanding ~ and
// environment variables. A configured path that expands to nothing reports
// common.ErrMissingConfig rather than letting sqlite create a nameless file.
func DatabasePath() (string, error) {
	path := viper.GetString(keyDatabasePath)
	if path == "" {
		path = defaultDatabasePath
	}
	expanded := ExpandPath(path)
	if expanded == "" {
		return "", fmt.Errorf("%w: %s %q expands to an empty path",
			common.ErrMissingConfig, keyDatabasePath, path)
	}
	return expanded, nil
}

// ResolverConfig builds the confidence resolver configuration from viper,
// starting from the defaults and applying any configured overrides.
func ResolverConfig() (engine.ResolverConfig, error) {
	cfg := engine.DefaultResolverConfig()

	if viper.IsSet(keyAutoAccept) {
		cfg.AutoAccept = viper.GetFloat64(keyAutoAccept)
	}
	if viper.IsSet(keyForceReview) {
		cfg.ForceReview = viper.GetFloat64(keyForceReview)
	}
	if viper.IsSet(keyMeasuredScale) {
		cfg.MeasuredScale = viper.GetFloat64(keyMeasuredScale)
	}
	if viper.IsSet(keyConfidenceCap) {
		cfg.ConfidenceCap = viper.GetFloat64(keyConfidenceCap)
	}

	// confidence.baselines.<strength>: 0.97 overrides one tier at a time.
	for strength := range cfg.StrengthBaselines {
		key := fmt.Sprintf("%s.%s", keyBaselines, strength)
		if !viper.IsSet(key) {
			continue
		}
		value := viper.GetFloat64(key)
		if value <= 0 || value > 1 {
			return cfg, fmt.Errorf("%w: %s must be in (0, 1], got %v", common.ErrInvalidConfig, key, value)
		}
		cfg.StrengthBaselines[strength] = value
	}

	for name, value := range map[string]float64{
		keyAutoAccept:    cfg.AutoAccept,
		keyForceReview:   cfg.ForceReview,
		keyMeasuredScale: cfg.MeasuredScale,
		keyConfidenceCap: cfg.ConfidenceCap,
	} {
		if value <= 0 || value > 1 {
			return cfg, fmt.Errorf("%w: %s must be in (0, 1], got %v", common.ErrInvalidConfig, name, value)
		}
	}
	if cfg.ForceReview > cfg.AutoAccept {
		return cfg, fmt.Errorf("%w: %s (%v) must not exceed %s (%v)",
			common.ErrInvalidConfig, keyForceReview, cfg.ForceReview, keyAutoAccept, cfg.AutoAccept)
	}

	return cfg, nil
}

// Workers returns the configured classification worker count, or 0 to let
// the batch runner pick its default.
func Workers() int {
	n := viper.GetInt(keyWorkers)
	if n < 0 {
		return 0
	}
	return n
}
