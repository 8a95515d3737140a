package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuntimeConfigValidates(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveTopology(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.ThreadsPerDomain = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultRuntimeConfig()
	cfg.TableVolume = -1
	assert.Error(t, cfg.Validate())
}

func TestRegisterFlagsOverridesDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"-threads=8", "-table-volume=1048576"}))
	assert.Equal(t, 8, cfg.ThreadsPerDomain)
	assert.EqualValues(t, 1048576, cfg.TableVolume)
	assert.NoError(t, cfg.Validate())
}
