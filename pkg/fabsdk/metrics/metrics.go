/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import "github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"

var (
	requestsSent = metrics.CounterOpts{
		Namespace:  "hlfiot",
		Subsystem:  "gateway",
		Name:       "requests_sent",
		Help:       "The number of requests sent to the gateway.",
		LabelNames: []string{"endpoint"},
	}
	requestsFailed = metrics.CounterOpts{
		Namespace:  "hlfiot",
		Subsystem:  "gateway",
		Name:       "requests_failed",
		Help:       "The number of gateway requests that failed, by status group and code.",
		LabelNames: []string{"endpoint", "group", "code"},
	}
	requestDuration = metrics.HistogramOpts{
		Namespace:  "hlfiot",
		Subsystem:  "gateway",
		Name:       "request_duration",
		Help:       "The time to complete a gateway request.",
		LabelNames: []string{"endpoint"},
	}
	stagesEntered = metrics.CounterOpts{
		Namespace:  "hlfiot",
		Subsystem:  "pipeline",
		Name:       "stages_entered",
		Help:       "The number of pipeline stage transitions.",
		LabelNames: []string{"component", "stage"},
	}
	runsFailed = metrics.CounterOpts{
		Namespace:  "hlfiot",
		Subsystem:  "pipeline",
		Name:       "runs_failed",
		Help:       "The number of pipeline runs that failed, by the stage they failed in.",
		LabelNames: []string{"component", "stage"},
	}
	signaturesCreated = metrics.CounterOpts{
		Namespace:  "hlfiot",
		Subsystem:  "pipeline",
		Name:       "signatures_created",
		Help:       "The number of digests signed with the device key.",
		LabelNames: []string{"component"},
	}
)

// GatewayMetrics contains the metrics of the gateway transport
type GatewayMetrics struct {
	RequestsSent    metrics.Counter
	RequestsFailed  metrics.Counter
	RequestDuration metrics.Histogram
}

// NewGatewayMetrics builds a new instance of GatewayMetrics
func NewGatewayMetrics(p metrics.Provider) *GatewayMetrics {
	return &GatewayMetrics{
		RequestsSent:    p.NewCounter(requestsSent),
		RequestsFailed:  p.NewCounter(requestsFailed),
		RequestDuration: p.NewHistogram(requestDuration),
	}
}

// PipelineMetrics contains the metrics of enrollment and submission runs
type PipelineMetrics struct {
	StagesEntered     metrics.Counter
	RunsFailed        metrics.Counter
	SignaturesCreated metrics.Counter
}

// NewPipelineMetrics builds a new instance of PipelineMetrics
func NewPipelineMetrics(p metrics.Provider) *PipelineMetrics {
	return &PipelineMetrics{
		StagesEntered:     p.NewCounter(stagesEntered),
		RunsFailed:        p.NewCounter(runsFailed),
		SignaturesCreated: p.NewCounter(signaturesCreated),
	}
}
