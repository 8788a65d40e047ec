package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, time.Second, c.TimePeriod)
	assert.Equal(t, time.Second, c.RatePeriod)
	assert.Equal(t, 120, c.AbbrevLen)
	assert.False(t, c.Optimize)
	assert.Equal(t, "off", c.Debug)
}

func TestBindFlags(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--time-period=250ms", "--optimize", "--debug=paths",
	}))
	assert.Equal(t, 250*time.Millisecond, c.TimePeriod)
	assert.True(t, c.Optimize)
	assert.Equal(t, "paths", c.Debug)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FLOW_TIME_PERIOD", "2s")
	t.Setenv("FLOW_OPTIMIZE", "true")
	t.Setenv("FLOW_DEBUG", "detailed")

	c := Default()
	c.FromEnv()
	assert.Equal(t, 2*time.Second, c.TimePeriod)
	assert.True(t, c.Optimize)
	assert.Equal(t, "detailed", c.Debug)
}

func TestTemporalProjection(t *testing.T) {
	c := Default()
	c.TimePeriod = 3 * time.Second
	tc := c.Temporal(nil)
	assert.Equal(t, 3*time.Second, tc.TimePeriod)
	assert.Equal(t, c.AbbrevLen, tc.AbbrevLen)
	assert.NotNil(t, tc.Log)
}
