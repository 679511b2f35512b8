package config

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/engine"
	"github.com/propflow/propflow/internal/model"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestResolverConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := ResolverConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultResolverConfig(), cfg)
}

func TestResolverConfig_Overrides(t *testing.T) {
	resetViper(t)
	viper.Set("confidence.auto_accept", 0.95)
	viper.Set("confidence.force_review", 0.80)
	viper.Set("confidence.baselines.weak", 0.70)

	cfg, err := ResolverConfig()
	require.NoError(t, err)
	assert.InDelta(t, 0.95, cfg.AutoAccept, 1e-9)
	assert.InDelta(t, 0.80, cfg.ForceReview, 1e-9)
	assert.InDelta(t, 0.70, cfg.StrengthBaselines[model.StrengthWeak], 1e-9)
	assert.InDelta(t, 0.99, cfg.StrengthBaselines[model.StrengthStrong], 1e-9)
}

func TestResolverConfig_Invalid(t *testing.T) {
	resetViper(t)
	viper.Set("confidence.auto_accept", 1.5)

	_, err := ResolverConfig()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestResolverConfig_ReviewAboveAccept(t *testing.T) {
	resetViper(t)
	viper.Set("confidence.force_review", 0.95)

	_, err := ResolverConfig()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestDatabasePath(t *testing.T) {
	resetViper(t)
	viper.Set("database.path", "/tmp/propflow-test.db")

	path, err := DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/propflow-test.db", path)
}

func TestDatabasePath_EmptyExpansion(t *testing.T) {
	resetViper(t)
	viper.Set("database.path", "$PROPFLOW_TEST_UNSET_DB")

	_, err := DatabasePath()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))
}

func TestWorkers(t *testing.T) {
	resetViper(t)
	assert.Equal(t, 0, Workers())

	viper.Set("classify.workers", 8)
	assert.Equal(t, 8, Workers())

	viper.Set("classify.workers", -2)
	assert.Equal(t, 0, Workers())
}

func TestExpandPath(t *testing.T) {
	t.Setenv("PROPFLOW_TEST_DIR", "/tmp/propflow")

	assert.Equal(t, "/tmp/propflow/db", ExpandPath("$PROPFLOW_TEST_DIR/db"))
	assert.Equal(t, "", ExpandPath(""))
}
