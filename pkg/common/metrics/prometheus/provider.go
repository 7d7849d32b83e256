/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
)

// Provider creates prometheus meters registered with its own registry.
type Provider struct {
	Registry *prom.Registry
}

// NewProvider returns a provider backed by a fresh registry
func NewProvider() *Provider {
	return &Provider{Registry: prom.NewRegistry()}
}

// Gatherer returns the registry to be served on the metrics endpoint
func (p *Provider) Gatherer() prom.Gatherer {
	return p.Registry
}

// NewCounter creates or reuses the counter vector described by opts
func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	cv := prom.NewCounterVec(
		prom.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      o.Name,
			Help:      o.Help,
		},
		o.LabelNames,
	)
	cv = register(p.Registry, cv).(*prom.CounterVec)
	return &Counter{Counter: kitprom.NewCounter(cv)}
}

// NewGauge creates or reuses the gauge vector described by opts
func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	gv := prom.NewGaugeVec(
		prom.GaugeOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      o.Name,
			Help:      o.Help,
		},
		o.LabelNames,
	)
	gv = register(p.Registry, gv).(*prom.GaugeVec)
	return &Gauge{Gauge: kitprom.NewGauge(gv)}
}

// NewHistogram creates or reuses the histogram vector described by opts
func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	hv := prom.NewHistogramVec(
		prom.HistogramOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      o.Name,
			Help:      o.Help,
			Buckets:   o.Buckets,
		},
		o.LabelNames,
	)
	hv = register(p.Registry, hv).(*prom.HistogramVec)
	return &Histogram{Histogram: kitprom.NewHistogram(hv)}
}

// register registers c, returning the collector already registered under
// the same description if there is one
func register(r *prom.Registry, c prom.Collector) prom.Collector {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Counter wraps a go-kit prometheus counter
type Counter struct{ kitmetrics.Counter }

// With returns the counter with the given label values
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{Counter: c.Counter.With(labelValues...)}
}

// Gauge wraps a go-kit prometheus gauge
type Gauge struct{ kitmetrics.Gauge }

// With returns the gauge with the given label values
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.Gauge.With(labelValues...)}
}

// Histogram wraps a go-kit prometheus histogram
type Histogram struct{ kitmetrics.Histogram }

// With returns the histogram with the given label values
func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.Histogram.With(labelValues...)}
}
