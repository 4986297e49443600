package metrics

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace prefixes every collector exported by this binary
const Namespace = "hist_temps"

// MustRegister is a simple wrapper around prometheus's built in MustRegister
// which tolerates a collector having already been registered, as happens when
// tests construct several instances of a component.
func MustRegister(c prometheus.Collector) {
	err := prometheus.Register(c)
	if err != nil {
		if prometheus.Unregister(c) {
			prometheus.MustRegister(c)
		} else {
			panic(err)
		}
	}
}

// Push sends everything in the default gatherer to a pushgateway. A one-shot
// CLI run is over before any scraper could see it, so this is the only way the
// collectors leave the process.
func Push(ctx context.Context, gatewayURL, job string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, gatewayURL, job)
}

// PushFrom is Push with an explicit gatherer
func PushFrom(ctx context.Context, gatherer prometheus.Gatherer, gatewayURL, job string) error {
	if gatewayURL == "" {
		return errors.New("pushgateway URL is empty")
	}

	err := push.New(gatewayURL, job).Gatherer(gatherer).PushContext(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to push metrics")
	}

	return nil
}
