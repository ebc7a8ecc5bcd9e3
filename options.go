package qloss

import (
	"github.com/nimbusnet/qloss/internal/qlog"
	"github.com/nimbusnet/qloss/internal/rttstats"
)

type config struct {
	initialRTT Milliseconds
	logger     qlog.Logger
}

func defaultConfig() *config {
	return &config{
		initialRTT: rttstats.DefaultInitialRTT,
		logger:     qlog.Nop,
	}
}

// Option configures a Recovery at construction time.
type Option func(*config)

// WithInitialRTT overrides the RTT estimator's seed value (default 333ms,
// RFC 9002's DEFAULT_INITIAL_RTT).
func WithInitialRTT(ms float64) Option {
	return func(c *config) { c.initialRTT = Milliseconds(ms) }
}

// WithLogger injects a logger. The default discards everything.
func WithLogger(l qlog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
