/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api contains the factories the SDK builds its providers from.
package api

import (
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite"
	sdkmetrics "github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
)

// CoreProviderFactory allows overriding of primitives and local stores
type CoreProviderFactory interface {
	NewMetricsProvider(config core.MetricsConfig) (metrics.Provider, error)
	NewDigestVerifier(config core.CryptoSuiteConfig) (*cryptosuite.DigestVerifier, error)
	NewIdentityStore(config msp.IdentityConfig) (msp.IdentityStore, error)
}

// ServiceProviderFactory allows overriding the gateway transport
type ServiceProviderFactory interface {
	NewGateway(config core.GatewayConfig, metrics *sdkmetrics.GatewayMetrics) (fab.Gateway, error)
}
