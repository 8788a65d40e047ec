// Package config holds the runtime knobs of the flowc binary and the
// flows it drives, bound to pflag flags (and overridable through the
// FLOW_* environment) the way a CLI wires a config struct before
// handing it to the runtime layers.
package config

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/flowlang/flow/internal/flowlog"
	"github.com/flowlang/flow/internal/temporal"
)

// Config is the resolved configuration for a flow session.
type Config struct {
	// TimePeriod is one tick of the time stack.
	TimePeriod time.Duration
	// RatePeriod is one tick of the frequency stack.
	RatePeriod time.Duration
	// AbbrevLen is the dump abbreviation threshold, in runes.
	AbbrevLen int
	// Optimize enables parse-time constant folding.
	Optimize bool
	// Debug selects the trace level: off, paths, detailed.
	Debug string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		TimePeriod: time.Second,
		RatePeriod: time.Second,
		AbbrevLen:  120,
		Debug:      "off",
	}
}

// BindFlags registers the config's flags on fs, using the current
// values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&c.TimePeriod, "time-period", c.TimePeriod, "duration of one time-stack tick")
	fs.DurationVar(&c.RatePeriod, "rate-period", c.RatePeriod, "duration of one frequency-stack tick")
	fs.IntVar(&c.AbbrevLen, "abbrev", c.AbbrevLen, "dump abbreviation threshold in runes")
	fs.BoolVar(&c.Optimize, "optimize", c.Optimize, "constant-fold literal arithmetic at parse time")
	fs.StringVar(&c.Debug, "debug", c.Debug, "trace level: off, paths, detailed")
}

// FromEnv overlays FLOW_TIME_PERIOD, FLOW_RATE_PERIOD, FLOW_ABBREV,
// FLOW_OPTIMIZE, and FLOW_DEBUG onto c. Flags bound after this call
// still win when set explicitly.
func (c *Config) FromEnv() {
	if v := os.Getenv("FLOW_TIME_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TimePeriod = d
		}
	}
	if v := os.Getenv("FLOW_RATE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RatePeriod = d
		}
	}
	if v := os.Getenv("FLOW_ABBREV"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AbbrevLen = n
		}
	}
	if v := os.Getenv("FLOW_OPTIMIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Optimize = b
		}
	}
	if v := os.Getenv("FLOW_DEBUG"); v != "" {
		c.Debug = v
	}
}

// Logger builds the flowlog logger this config asks for.
func (c Config) Logger(w io.Writer) *flowlog.Logger {
	switch c.Debug {
	case "paths":
		return flowlog.New(flowlog.Paths, w)
	case "detailed":
		return flowlog.New(flowlog.Detailed, w)
	default:
		return flowlog.Discard()
	}
}

// Temporal projects the config onto the flow layer's own config.
func (c Config) Temporal(w io.Writer) temporal.Config {
	return temporal.Config{
		TimePeriod: c.TimePeriod,
		RatePeriod: c.RatePeriod,
		AbbrevLen:  c.AbbrevLen,
		Log:        c.Logger(w),
	}
}
