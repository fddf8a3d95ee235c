package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperAppliesDefaultsWhenUnset(t *testing.T) {
	v := viper.New()
	cfg := FromViper(v)
	require.Equal(t, Defaults(), cfg)
}

func TestFromViperOverridesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("addr", ":9001")
	v.Set("num-threads", 8)
	v.Set("cache-keep-tile", 14)
	v.Set("parse-timeout", 2*time.Second)
	v.Set("strict-style", true)

	cfg := FromViper(v)
	require.Equal(t, ":9001", cfg.Addr)
	require.Equal(t, 8, cfg.NumThreads)
	require.Equal(t, uint8(14), cfg.CacheKeepTileZoom)
	require.Equal(t, 2*time.Second, cfg.ParseTimeout)
	require.True(t, cfg.StrictStyle)
}

func TestFromViperZeroParseTimeoutKeepsDefault(t *testing.T) {
	v := viper.New()
	v.Set("parse-timeout", 0)

	cfg := FromViper(v)
	require.Equal(t, Defaults().ParseTimeout, cfg.ParseTimeout)
}
