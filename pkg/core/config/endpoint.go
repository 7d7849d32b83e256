/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/multi"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/msp"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config/lookup"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config/urlutil"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/util/pathvar"
)

const (
	defGatewayTimeout    = 30 * time.Second
	defChannelID         = "common"
	defChaincodeID       = "hlf_iot_cc"
	defMSPID             = "hlfiotMSP"
	defFcn               = "addIotCertificate"
	defPeers             = "hlfiot/peer0,device/peer0"
	defLogin             = "admin"
	defPassword          = "adminpw"
	defHashAlgorithm     = "SHA2"
	defKeyStorePath      = "${HLFIOT_HOME}/keystore"
	defOperationsAddress = "127.0.0.1:9443"
)

// ChannelSettings is the static part of every proposal.
type ChannelSettings struct {
	ID        string
	Chaincode string
	MSPID     string
	Fcn       string
	// Args, when empty, are taken from the enrolled certificate
	Args []string
}

// ClientConfig is the typed view of the client section of the configuration.
type ClientConfig struct {
	backend *lookup.ConfigLookup
	channel ChannelSettings
}

// ClientConfigFromBackend builds and validates the client configuration.
func ClientConfigFromBackend(coreBackend ...core.ConfigBackend) (*ClientConfig, error) {
	c := &ClientConfig{
		backend: lookup.New(coreBackend...),
		channel: ChannelSettings{
			ID:        defChannelID,
			Chaincode: defChaincodeID,
			MSPID:     defMSPID,
			Fcn:       defFcn,
		},
	}

	err := c.backend.UnmarshalKey("client.channel", &c.channel,
		lookup.WithUnmarshalHookFunction(mapstructure.StringToSliceHookFunc(",")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse client.channel")
	}

	if err := c.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid client configuration")
	}
	return c, nil
}

// Validate reports every configuration problem found.
func (c *ClientConfig) Validate() error {
	var errs error

	if _, err := urlutil.ParseBaseURL(c.GatewayURL()); err != nil {
		errs = multi.Append(errs, errors.WithMessage(err, "client.gateway.url"))
	}
	if raw := c.CustomFieldURL(); raw != "" {
		if u, err := url.Parse(raw); err != nil || !urlutil.HasProtocol(raw) || u.Host == "" {
			errs = multi.Append(errs, errors.Errorf("client.gateway.customFieldURL is not an absolute URL: %s", raw))
		}
	}
	if c.Timeout() < 0 {
		errs = multi.Append(errs, errors.New("client.gateway.timeout must not be negative"))
	}
	if c.Credentials().Login == "" {
		errs = multi.Append(errs, errors.New("client.credentials.login is required"))
	}
	if c.channel.ID == "" || c.channel.Chaincode == "" || c.channel.MSPID == "" || c.channel.Fcn == "" {
		errs = multi.Append(errs, errors.New("client.channel requires id, chaincode, mspid and fcn"))
	}
	if strings.Trim(c.PeerList(), ", ") == "" {
		errs = multi.Append(errs, errors.New("client.peers is required"))
	}
	switch c.HashAlgorithm() {
	case "SHA2", "SHA3":
	default:
		errs = multi.Append(errs, errors.Errorf("client.cryptoconfig.hashAlgorithm [%s] is not supported", c.HashAlgorithm()))
	}
	if c.MetricsEnabled() && c.OperationsAddress() == "" {
		errs = multi.Append(errs, errors.New("client.metrics.address is required when metrics are enabled"))
	}

	return errs
}

// GatewayURL returns the base URL of the gateway
func (c *ClientConfig) GatewayURL() string {
	return c.backend.GetString("client.gateway.url")
}

// Timeout returns the timeout of a single gateway call
func (c *ClientConfig) Timeout() time.Duration {
	if _, ok := c.backend.Lookup("client.gateway.timeout"); !ok {
		return defGatewayTimeout
	}
	return c.backend.GetDuration("client.gateway.timeout")
}

// CustomFieldURL returns the URL serving the email field, if any
func (c *ClientConfig) CustomFieldURL() string {
	return c.backend.GetString("client.gateway.customFieldURL")
}

// Credentials returns the enrollment credentials
func (c *ClientConfig) Credentials() msp.SigningRequestCreds {
	creds := msp.SigningRequestCreds{
		Login:    c.backend.GetString("client.credentials.login"),
		Password: c.backend.GetString("client.credentials.password"),
	}
	if _, ok := c.backend.Lookup("client.credentials.login"); !ok {
		creds.Login = defLogin
	}
	if _, ok := c.backend.Lookup("client.credentials.password"); !ok {
		creds.Password = defPassword
	}
	return creds
}

// Email returns the configured email
func (c *ClientConfig) Email() string {
	return c.backend.GetString("client.credentials.email")
}

// KeyStorePath returns the directory holding enrolled identities
func (c *ClientConfig) KeyStorePath() string {
	path := c.backend.GetString("client.keystore.path")
	if path == "" {
		path = defKeyStorePath
	}
	return pathvar.Subst(path)
}

// ChannelID returns the channel transactions are proposed on
func (c *ClientConfig) ChannelID() string {
	return c.channel.ID
}

// ChaincodeID returns the invoked chaincode
func (c *ClientConfig) ChaincodeID() string {
	return c.channel.Chaincode
}

// MSPID returns the MSP of the device
func (c *ClientConfig) MSPID() string {
	return c.channel.MSPID
}

// Fcn returns the invoked chaincode function
func (c *ClientConfig) Fcn() string {
	return c.channel.Fcn
}

// Args returns the configured chaincode arguments
func (c *ClientConfig) Args() []string {
	return append([]string(nil), c.channel.Args...)
}

// PeerList returns the comma delimited target peers
func (c *ClientConfig) PeerList() string {
	if _, ok := c.backend.Lookup("client.peers"); !ok {
		return defPeers
	}
	return strings.Join(c.backend.GetStringSlice("client.peers"), ",")
}

// VerifyDigests reports whether received digests are checked against the payload
func (c *ClientConfig) VerifyDigests() bool {
	return c.backend.GetBool("client.cryptoconfig.verifyDigests")
}

// HashAlgorithm returns the digest algorithm family used by the gateway
func (c *ClientConfig) HashAlgorithm() string {
	algo := strings.ToUpper(c.backend.GetString("client.cryptoconfig.hashAlgorithm"))
	if algo == "" {
		return defHashAlgorithm
	}
	return algo
}

// AcceptExpression returns the expression deciding if a broadcast was accepted
func (c *ClientConfig) AcceptExpression() string {
	return c.backend.GetString("client.broadcast.acceptExpression")
}

// LogLevel returns the configured log level
func (c *ClientConfig) LogLevel() string {
	return c.backend.GetString("client.logging.level")
}

// MetricsEnabled reports whether the operations endpoint is served
func (c *ClientConfig) MetricsEnabled() bool {
	return c.backend.GetBool("client.metrics.enabled")
}

// OperationsAddress returns the listen address of the operations endpoint
func (c *ClientConfig) OperationsAddress() string {
	if _, ok := c.backend.Lookup("client.metrics.address"); !ok {
		return defOperationsAddress
	}
	return c.backend.GetString("client.metrics.address")
}
