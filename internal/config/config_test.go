package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, uint64(5), cfg.FeePercentage)
	assert.Equal(t, int64(30*24*3600), cfg.PeriodDuration)
	assert.Equal(t, uint64(7200), cfg.VotingDelay)
	assert.Equal(t, uint64(50400), cfg.VotingPeriod)
	assert.Equal(t, int64(7200), cfg.MinDelay)
	assert.Equal(t, uint64(4), cfg.QuorumPercent)
	assert.Equal(t, defaultBaseURI, cfg.BaseURI)
	assert.Equal(t, defaultTimelock, cfg.TimelockAddress)
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("PORT", "9999")
	t.Setenv("FEE_PERCENTAGE", "12")
	t.Setenv("VOTING_DELAY_BLOCKS", "10")
	t.Setenv("BASE_URI", "ipfs://custom/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, uint64(12), cfg.FeePercentage)
	assert.Equal(t, uint64(10), cfg.VotingDelay)
	assert.Equal(t, "ipfs://custom/", cfg.BaseURI)
}

func TestLoad_RejectsOutOfRangePercentages(t *testing.T) {
	viper.Reset()
	t.Setenv("FEE_PERCENTAGE", "101")
	_, err := Load()
	assert.Error(t, err)

	viper.Reset()
	t.Setenv("FEE_PERCENTAGE", "5")
	t.Setenv("QUORUM_PERCENT", "101")
	_, err = Load()
	assert.Error(t, err)
}
