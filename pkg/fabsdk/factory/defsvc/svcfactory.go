/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package defsvc

import (
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fab/comm"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

// ProviderFactory represents the default SDK provider factory for services.
type ProviderFactory struct{}

// NewProviderFactory returns the default SDK provider factory for services.
func NewProviderFactory() *ProviderFactory {
	f := ProviderFactory{}
	return &f
}

// NewGateway returns the default HTTP gateway client
func (f *ProviderFactory) NewGateway(config core.GatewayConfig, m *metrics.GatewayMetrics) (fab.Gateway, error) {
	return comm.NewGateway(config, comm.WithMetrics(m))
}
