/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package defcore

import (
	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/disabled"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics/prometheus"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/cryptosuite"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/api"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/modlog"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

// ProviderFactory represents the default SDK provider factory.
type ProviderFactory struct{}

// NewProviderFactory returns the default SDK provider factory.
func NewProviderFactory() *ProviderFactory {
	f := ProviderFactory{}
	return &f
}

// NewMetricsProvider returns a prometheus provider when metrics are enabled
// and a no-op provider otherwise
func (f *ProviderFactory) NewMetricsProvider(config core.MetricsConfig) (metrics.Provider, error) {
	if config == nil || !config.MetricsEnabled() {
		return &disabled.Provider{}, nil
	}
	return prometheus.NewProvider(), nil
}

// NewDigestVerifier returns the verifier of received digests
func (f *ProviderFactory) NewDigestVerifier(config core.CryptoSuiteConfig) (*cryptosuite.DigestVerifier, error) {
	return cryptosuite.NewDigestVerifier(config)
}

// NewIdentityStore creates a file identity store under the configured key store path
func (f *ProviderFactory) NewIdentityStore(config msp.IdentityConfig) (msp.IdentityStore, error) {
	store, err := mspimpl.NewFileIdentityStore(config.KeyStorePath())
	if err != nil {
		return nil, errors.WithMessage(err, "identity store creation failed")
	}
	return store, nil
}

// NewLoggerProvider returns a new default implementation of a logger backend
// This function is separated from the factory to allow logger creation first.
func NewLoggerProvider() api.LoggerProvider {
	return modlog.LoggerProvider()
}
