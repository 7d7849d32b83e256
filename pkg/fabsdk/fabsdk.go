/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabsdk builds a ready to use device client from a configuration:
// logging, metrics, the gateway transport, the CA and transaction clients
// and the pipeline driving them.
package fabsdk

import (
	"context"
	"io"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/client/pipeline"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/metrics"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/api"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/operations"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fab/txn"
	sdkApi "github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/api"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/factory/defcore"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/factory/defsvc"
	sdkmetrics "github.com/hlf-iot/iot-client-sdk-go/pkg/fabsdk/metrics"
	mspimpl "github.com/hlf-iot/iot-client-sdk-go/pkg/msp"
)

var logger = logging.NewLogger("hlfiot/sdk")

// Version is reported on the operations version endpoint
const Version = "latest"

// FabricSDK provides access to the clients built from a configuration
type FabricSDK struct {
	opts options

	config          *config.ClientConfig
	metricsProvider metrics.Provider
	gateway         fab.Gateway
	caClient        *mspimpl.CAClientImpl
	txClient        *txn.Client
	identityStore   msp.IdentityStore
	pipeline        *pipeline.Pipeline
	operations      *operations.System
}

type options struct {
	Core           sdkApi.CoreProviderFactory
	Service        sdkApi.ServiceProviderFactory
	Logger         api.LoggerProvider
	Random         io.Reader
	IdentityStore  msp.IdentityStore
	Identity       *msp.Identity
	StartOperation bool
}

// Option configures the SDK.
type Option func(opts *options) error

// WithCorePkg injects the core implementation into the SDK.
func WithCorePkg(core sdkApi.CoreProviderFactory) Option {
	return func(opts *options) error {
		opts.Core = core
		return nil
	}
}

// WithServicePkg injects the service implementation into the SDK.
func WithServicePkg(service sdkApi.ServiceProviderFactory) Option {
	return func(opts *options) error {
		opts.Service = service
		return nil
	}
}

// WithLoggerPkg injects the logger implementation into the SDK.
func WithLoggerPkg(logger api.LoggerProvider) Option {
	return func(opts *options) error {
		opts.Logger = logger
		return nil
	}
}

// WithRandom sets the source used for key generation and signing.
func WithRandom(r io.Reader) Option {
	return func(opts *options) error {
		if r == nil {
			return errors.New("random source is nil")
		}
		opts.Random = r
		return nil
	}
}

// WithIdentityStore replaces the file identity store.
func WithIdentityStore(store msp.IdentityStore) Option {
	return func(opts *options) error {
		opts.IdentityStore = store
		return nil
	}
}

// WithIdentity starts the pipeline with an enrolled identity.
func WithIdentity(identity *msp.Identity) Option {
	return func(opts *options) error {
		opts.Identity = identity
		return nil
	}
}

// WithOperations serves the operations endpoints when metrics are enabled.
func WithOperations() Option {
	return func(opts *options) error {
		opts.StartOperation = true
		return nil
	}
}

// New initializes the SDK from configProvider
func New(configProvider core.ConfigProvider, opts ...Option) (*FabricSDK, error) {
	if configProvider == nil {
		return nil, errors.New("config provider is required")
	}

	sdk := &FabricSDK{
		opts: options{
			Core:    defcore.NewProviderFactory(),
			Service: defsvc.NewProviderFactory(),
		},
	}
	for _, option := range opts {
		if err := option(&sdk.opts); err != nil {
			return nil, errors.WithMessage(err, "Error in option passed to New")
		}
	}

	if err := sdk.init(configProvider); err != nil {
		return nil, err
	}
	return sdk, nil
}

func (sdk *FabricSDK) init(configProvider core.ConfigProvider) error {
	if sdk.opts.Logger == nil {
		sdk.opts.Logger = defcore.NewLoggerProvider()
	}
	logging.Initialize(sdk.opts.Logger)

	backends, err := configProvider()
	if err != nil {
		return errors.WithMessage(err, "failed to load config")
	}
	cfg, err := config.ClientConfigFromBackend(backends...)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize config")
	}
	sdk.config = cfg

	if lvl := cfg.LogLevel(); lvl != "" {
		level, err := logging.LogLevel(lvl)
		if err != nil {
			return errors.WithMessage(err, "invalid client.logging.level")
		}
		logging.SetLevel("", level)
	}

	sdk.metricsProvider, err = sdk.opts.Core.NewMetricsProvider(cfg)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize metrics provider")
	}
	pipelineMetrics := sdkmetrics.NewPipelineMetrics(sdk.metricsProvider)

	sdk.gateway, err = sdk.opts.Service.NewGateway(cfg, sdkmetrics.NewGatewayMetrics(sdk.metricsProvider))
	if err != nil {
		return errors.WithMessage(err, "failed to initialize gateway")
	}

	verifier, err := sdk.opts.Core.NewDigestVerifier(cfg)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize digest verifier")
	}

	caOpts := []mspimpl.ClientOption{
		mspimpl.WithDigestVerifier(verifier),
		mspimpl.WithMetrics(pipelineMetrics),
		mspimpl.WithEmailProvider(&mspimpl.EmailSource{
			Gateway:        sdk.gateway,
			CustomFieldURL: cfg.CustomFieldURL(),
			Configured:     cfg.Email(),
		}),
	}
	txOpts := []txn.ClientOption{
		txn.WithDigestVerifier(verifier),
		txn.WithMetrics(pipelineMetrics),
	}
	var pipelineOpts []pipeline.Option

	if sdk.opts.Random != nil {
		caOpts = append(caOpts, mspimpl.WithRandom(sdk.opts.Random))
		txOpts = append(txOpts, txn.WithRandom(sdk.opts.Random))
		pipelineOpts = append(pipelineOpts, pipeline.WithRandom(sdk.opts.Random))
	}

	evaluator, err := txn.NewAckEvaluator(cfg.AcceptExpression())
	if err != nil {
		return errors.WithMessage(err, "invalid client.broadcast.acceptExpression")
	}
	if evaluator != nil {
		txOpts = append(txOpts, txn.WithAckEvaluator(evaluator))
	}

	sdk.caClient, err = mspimpl.NewCAClient(sdk.gateway, caOpts...)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize CA client")
	}
	sdk.txClient, err = txn.New(sdk.gateway, txOpts...)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize transaction client")
	}

	sdk.identityStore = sdk.opts.IdentityStore
	if sdk.identityStore == nil {
		sdk.identityStore, err = sdk.opts.Core.NewIdentityStore(cfg)
		if err != nil {
			return errors.WithMessage(err, "failed to initialize identity store")
		}
	}

	if sdk.opts.Identity != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithIdentity(sdk.opts.Identity))
	}
	sdk.pipeline, err = pipeline.New(sdk.caClient, sdk.txClient, cfg, cfg.Credentials(), pipelineOpts...)
	if err != nil {
		return errors.WithMessage(err, "failed to initialize pipeline")
	}

	if sdk.opts.StartOperation && cfg.MetricsEnabled() {
		if err := sdk.startOperations(); err != nil {
			return err
		}
	}

	logger.Debugf("SDK initialized for gateway %s", cfg.GatewayURL())
	return nil
}

type gatherer interface {
	Gatherer() prom.Gatherer
}

func (sdk *FabricSDK) startOperations() error {
	o := operations.Options{
		ListenAddress: sdk.config.OperationsAddress(),
		Version:       Version,
	}
	if g, ok := sdk.metricsProvider.(gatherer); ok {
		o.Gatherer = g.Gatherer()
	}

	system := operations.NewSystem(o)
	if err := system.RegisterChecker("gateway", &gatewayChecker{pipeline: sdk.pipeline}); err != nil {
		return errors.WithMessage(err, "failed to register health checker")
	}
	if err := system.Start(); err != nil {
		return errors.WithMessage(err, "failed to start operations system")
	}
	sdk.operations = system
	return nil
}

// Close stops the operations endpoints, if started.
func (sdk *FabricSDK) Close(ctx context.Context) error {
	if sdk.operations == nil {
		return nil
	}
	return sdk.operations.Stop(ctx)
}

// Config returns the client configuration
func (sdk *FabricSDK) Config() *config.ClientConfig {
	return sdk.config
}

// Pipeline returns the pipeline of the device
func (sdk *FabricSDK) Pipeline() *pipeline.Pipeline {
	return sdk.pipeline
}

// CAClient returns the enrollment client
func (sdk *FabricSDK) CAClient() *mspimpl.CAClientImpl {
	return sdk.caClient
}

// TxClient returns the transaction client
func (sdk *FabricSDK) TxClient() *txn.Client {
	return sdk.txClient
}

// IdentityStore returns the store of enrolled identities
func (sdk *FabricSDK) IdentityStore() msp.IdentityStore {
	return sdk.identityStore
}

// MetricsProvider returns the provider all clients record to
func (sdk *FabricSDK) MetricsProvider() metrics.Provider {
	return sdk.metricsProvider
}

// Operations returns the operations system, nil unless started
func (sdk *FabricSDK) Operations() *operations.System {
	return sdk.operations
}
