package regime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/pkg/errors"
)

const sampleConfig = `{
	"indicators": [
		{"name": "trend_adx", "type": "leafwest_adx", "params": [
			{"name": "di_period", "value": 14, "range": {"min": 10, "max": 20, "step": 2}},
			{"name": "adx_period", "value": 14}
		]},
		{"name": "momentum", "type": "rsi", "params": [
			{"name": "period", "value": 14}
		]}
	],
	"regimes": [
		{"id": "TF_BULL", "priority": 100, "thresholds": [
			{"name": "adx_min", "value": 25, "range": {"min": 20, "max": 35, "step": 2.5}},
			{"name": "di_diff_min", "value": 5}
		]},
		{"id": "TF_BEAR", "priority": 100, "thresholds": [
			{"name": "adx_min", "value": 25},
			{"name": "di_diff_min", "value": 5}
		]},
		{"id": "CHOP", "priority": 10, "thresholds": []}
	],
	"optimization_results": [
		{"applied": false, "params": {"trend_adx.di_period": 12}},
		{"applied": true, "params": {"trend_adx.di_period": 16}}
	]
}`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Indicators, 2)
	require.Len(t, cfg.Regimes, 3)

	_, err = ParseConfig([]byte(`{broken`))
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`{"indicators": [], "regimes": []}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestConfig_RegimesByPriority(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	sorted := cfg.RegimesByPriority()
	require.Len(t, sorted, 3)

	// Descending priority, equal priorities ordered by id.
	assert.Equal(t, "TF_BEAR", sorted[0].ID)
	assert.Equal(t, "TF_BULL", sorted[1].ID)
	assert.Equal(t, "CHOP", sorted[2].ID)

	assert.Equal(t, "CHOP", cfg.Fallback().ID)
}

func TestConfig_ResolveIndicator(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	// Type-family aliases point at the declared instance name.
	assert.Equal(t, "TREND_ADX", cfg.ResolveIndicator("adx"))
	assert.Equal(t, "TREND_ADX", cfg.ResolveIndicator("dmi"))
	assert.Equal(t, "MOMENTUM", cfg.ResolveIndicator("rsi"))

	// The declared name itself resolves too.
	assert.Equal(t, "TREND_ADX", cfg.ResolveIndicator("trend_adx"))

	// Unknown bases fall back to their uppercase form.
	assert.Equal(t, "CHANDELIER", cfg.ResolveIndicator("chandelier"))
}

func TestConfig_IndicatorParam(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	v, ok := cfg.IndicatorParam("trend_adx", "di_period")
	require.True(t, ok)
	assert.Equal(t, 14.0, v)

	// Lookup is case-insensitive.
	v, ok = cfg.IndicatorParam("TREND_ADX", "DI_PERIOD")
	require.True(t, ok)
	assert.Equal(t, 14.0, v)

	_, ok = cfg.IndicatorParam("trend_adx", "missing")
	assert.False(t, ok)
	_, ok = cfg.IndicatorParam("nothere", "period")
	assert.False(t, ok)
}

func TestConfig_FirstIndicatorOfType(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	ind, ok := cfg.FirstIndicatorOfType("leafwest_adx")
	require.True(t, ok)
	assert.Equal(t, "trend_adx", ind.Name)

	ind, ok = cfg.FirstIndicatorOfType("adx", "dmi", "leafwest_adx")
	require.True(t, ok)
	assert.Equal(t, "trend_adx", ind.Name)

	_, ok = cfg.FirstIndicatorOfType("chandelier_exit")
	assert.False(t, ok)
}

func TestConfig_LastApplied(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	snap := cfg.LastApplied()
	require.NotNil(t, snap)
	assert.True(t, snap.Applied)
	assert.Equal(t, 16.0, snap.Params["trend_adx.di_period"])

	// Without an applied marker the first snapshot wins.
	noApplied, err := ParseConfig([]byte(`{
		"regimes": [{"id": "CHOP", "priority": 1, "thresholds": []}],
		"optimization_results": [
			{"applied": false, "params": {"a": 1}},
			{"applied": false, "params": {"a": 2}}
		]
	}`))
	require.NoError(t, err)
	snap = noApplied.LastApplied()
	require.NotNil(t, snap)
	assert.Equal(t, 1.0, snap.Params["a"])

	empty, err := ParseConfig([]byte(`{"regimes": [{"id": "CHOP", "priority": 1, "thresholds": []}]}`))
	require.NoError(t, err)
	assert.Nil(t, empty.LastApplied())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regimes.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Regimes, 3)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigMissing))
}
