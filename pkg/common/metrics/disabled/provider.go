/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disabled

import (
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
)

// Provider is a metrics provider whose meters discard every value.
type Provider struct{}

// NewCounter returns a counter that does nothing
func (p *Provider) NewCounter(metrics.CounterOpts) metrics.Counter { return &Counter{} }

// NewGauge returns a gauge that does nothing
func (p *Provider) NewGauge(metrics.GaugeOpts) metrics.Gauge { return &Gauge{} }

// NewHistogram returns a histogram that does nothing
func (p *Provider) NewHistogram(metrics.HistogramOpts) metrics.Histogram { return &Histogram{} }

// Counter is a no-op counter
type Counter struct{}

// Add does nothing
func (c *Counter) Add(float64) {}

// With returns the same counter
func (c *Counter) With(...string) metrics.Counter {
	return c
}

// Gauge is a no-op gauge
type Gauge struct{}

// Add does nothing
func (g *Gauge) Add(float64) {}

// Set does nothing
func (g *Gauge) Set(float64) {}

// With returns the same gauge
func (g *Gauge) With(...string) metrics.Gauge {
	return g
}

// Histogram is a no-op histogram
type Histogram struct{}

// With returns the same histogram
func (h *Histogram) With(...string) metrics.Histogram {
	return h
}

// Observe does nothing
func (h *Histogram) Observe(float64) {}
