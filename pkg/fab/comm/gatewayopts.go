/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"net/http"
	"time"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/options"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

type params struct {
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.GatewayMetrics
}

func defaultParams(cfg core.GatewayConfig) *params {
	return &params{
		timeout: cfg.Timeout(),
		metrics: noMetrics,
	}
}

// WithTimeout overrides the configured timeout of a single request
func WithTimeout(value time.Duration) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(timeoutSetter); ok {
			setter.SetTimeout(value)
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests. The timeout
// option is ignored when a client is given.
func WithHTTPClient(value *http.Client) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(httpClientSetter); ok {
			setter.SetHTTPClient(value)
		}
	}
}

// WithMetrics sets the metrics recorded for every request
func WithMetrics(value *metrics.GatewayMetrics) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(metricsSetter); ok {
			setter.SetMetrics(value)
		}
	}
}

func (p *params) SetTimeout(value time.Duration) {
	logger.Debugf("Timeout: %s", value)
	p.timeout = value
}

func (p *params) SetHTTPClient(value *http.Client) {
	p.httpClient = value
}

func (p *params) SetMetrics(value *metrics.GatewayMetrics) {
	if value != nil {
		p.metrics = value
	}
}

type timeoutSetter interface {
	SetTimeout(value time.Duration)
}

type httpClientSetter interface {
	SetHTTPClient(value *http.Client)
}

type metricsSetter interface {
	SetMetrics(value *metrics.GatewayMetrics)
}
