/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/multi"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/logging"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/config/lookup"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/mocks"
)

const (
	configFile = "config_test.yaml"
	configType = "yaml"
)

var configTestFilePath = filepath.Join("testdata", configFile)

func loadConfigBytesFromFile(t *testing.T, filePath string) []byte {
	cBytes, err := os.ReadFile(filePath)
	require.NoError(t, err, "Failed to read config file")
	require.NotEmpty(t, cBytes, "Failed to read test config for bytes array testing")
	return cBytes
}

func TestFromRawSuccess(t *testing.T) {
	cBytes := loadConfigBytesFromFile(t, configTestFilePath)

	backends, err := FromRaw(cBytes, configType)()
	require.NoError(t, err, "Failed to initialize config from bytes array")
	require.Len(t, backends, 1)

	v, ok := backends[0].Lookup("client.gateway.url")
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8080/api/", v)
}

func TestFromReaderSuccess(t *testing.T) {
	buf := bytes.NewBuffer(loadConfigBytesFromFile(t, configTestFilePath))

	_, err := FromReader(buf, configType)()
	assert.NoError(t, err, "Failed to initialize config from reader")
}

func TestFromFile(t *testing.T) {
	_, err := FromFile(configTestFilePath)()
	assert.NoError(t, err)

	_, err = FromFile("")()
	assert.Error(t, err)

	_, err = FromFile(filepath.Join("testdata", "missing.yaml"))()
	assert.Error(t, err)
}

func TestEmptyConfigType(t *testing.T) {
	_, err := FromRaw([]byte("client: {}"), "")()
	assert.Error(t, err)
}

func TestTemplatePath(t *testing.T) {
	backends, err := FromRaw([]byte("client:\n  peers: device/peer1\n"), configType, WithTemplatePath(configTestFilePath))()
	require.NoError(t, err)

	c, err := ClientConfigFromBackend(backends...)
	require.NoError(t, err)
	assert.Equal(t, "device/peer1", c.PeerList(), "merged config overrides template")
	assert.Equal(t, "http://localhost:8080/api/", c.GatewayURL(), "template values are kept")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := FromRaw([]byte("client:\n  logging:\n    level: loud\n"), configType)()
	assert.Error(t, err)
}

func TestLogLevelApplied(t *testing.T) {
	_, err := FromRaw([]byte("client:\n  logging:\n    level: debug\n"), configType)()
	require.NoError(t, err)
	assert.Equal(t, logging.DEBUG, logging.GetLevel("hlfiot/msp"))

	_, err = FromRaw([]byte("client:\n  logging:\n    level: info\n"), configType)()
	require.NoError(t, err)
	assert.Equal(t, logging.INFO, logging.GetLevel("hlfiot/msp"))
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("HLFIOT_CLIENT_GATEWAY_URL", "http://gateway:9090/api")
	defer os.Unsetenv("HLFIOT_CLIENT_GATEWAY_URL")

	backends, err := FromFile(configTestFilePath)()
	require.NoError(t, err)
	c, err := ClientConfigFromBackend(backends...)
	require.NoError(t, err)
	assert.Equal(t, "http://gateway:9090/api", c.GatewayURL())

	backends, err = FromFile(configTestFilePath, WithEnvPrefix("OTHER"))()
	require.NoError(t, err)
	c, err = ClientConfigFromBackend(backends...)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/", c.GatewayURL())
}

func TestClientConfigFromFile(t *testing.T) {
	backends, err := FromFile(configTestFilePath)()
	require.NoError(t, err)

	c, err := ClientConfigFromBackend(backends...)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, c.Timeout())
	assert.Equal(t, "http://localhost:8080/api/custom-field", c.CustomFieldURL())
	assert.Equal(t, "admin", c.Credentials().Login)
	assert.Equal(t, "adminpw", c.Credentials().Password)
	assert.Equal(t, "device@hlfiot.example.com", c.Email())
	assert.Equal(t, filepath.Join(os.TempDir(), "hlfiot", "keystore"), c.KeyStorePath())
	assert.Equal(t, "common", c.ChannelID())
	assert.Equal(t, "hlf_iot_cc", c.ChaincodeID())
	assert.Equal(t, "hlfiotMSP", c.MSPID())
	assert.Equal(t, "addIotCertificate", c.Fcn())
	assert.Empty(t, c.Args())
	assert.Equal(t, "hlfiot/peer0,device/peer0", c.PeerList())
	assert.True(t, c.VerifyDigests())
	assert.Equal(t, "SHA2", c.HashAlgorithm())
	assert.Equal(t, `result != ""`, c.AcceptExpression())
	assert.Equal(t, "info", c.LogLevel())
	assert.False(t, c.MetricsEnabled())
	assert.Equal(t, "127.0.0.1:9443", c.OperationsAddress())
}

func TestClientConfigDefaults(t *testing.T) {
	backend := mocks.NewMockConfigBackend(map[string]interface{}{
		"client.gateway.url": "localhost:8080/api",
	})

	c, err := ClientConfigFromBackend(backend)
	require.NoError(t, err)

	assert.Equal(t, defGatewayTimeout, c.Timeout())
	assert.Equal(t, defLogin, c.Credentials().Login)
	assert.Equal(t, defPassword, c.Credentials().Password)
	assert.Equal(t, defChannelID, c.ChannelID())
	assert.Equal(t, defChaincodeID, c.ChaincodeID())
	assert.Equal(t, defMSPID, c.MSPID())
	assert.Equal(t, defFcn, c.Fcn())
	assert.Equal(t, defPeers, c.PeerList())
	assert.Equal(t, defHashAlgorithm, c.HashAlgorithm())
	assert.Equal(t, defOperationsAddress, c.OperationsAddress())
	assert.False(t, c.VerifyDigests())
	assert.NotContains(t, c.KeyStorePath(), "${")
}

func TestClientConfigChannelArgs(t *testing.T) {
	backend := mocks.NewMockConfigBackend(map[string]interface{}{
		"client.gateway.url": "http://localhost:8080/api",
		"client.channel":     map[string]interface{}{"args": "device-1,temperature"},
		"client.peers":       []interface{}{"hlfiot/peer0", "device/peer0", "hlfiot/peer0"},
	})

	c, err := ClientConfigFromBackend(backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-1", "temperature"}, c.Args())
	assert.Equal(t, defChannelID, c.ChannelID(), "unset channel fields keep their defaults")
	assert.Equal(t, "hlfiot/peer0,device/peer0,hlfiot/peer0", c.PeerList())
}

func TestClientConfigValidation(t *testing.T) {
	backend := mocks.NewMockConfigBackend(map[string]interface{}{
		"client.gateway.url":                "grpc://peer0:7051",
		"client.gateway.customFieldURL":     "not a url",
		"client.gateway.timeout":            "-1s",
		"client.credentials.login":          "",
		"client.peers":                      " , ",
		"client.cryptoconfig.hashAlgorithm": "MD5",
		"client.metrics.enabled":            true,
		"client.metrics.address":            "",
	})

	_, err := ClientConfigFromBackend(backend)
	require.Error(t, err)

	c := &ClientConfig{
		backend: lookup.New(backend),
		channel: ChannelSettings{ID: defChannelID, Chaincode: defChaincodeID, MSPID: defMSPID, Fcn: defFcn},
	}
	errs, ok := c.Validate().(multi.Errors)
	require.True(t, ok, "all problems must be reported at once")
	assert.Len(t, errs, 7)

	c.channel = ChannelSettings{}
	errs, ok = c.Validate().(multi.Errors)
	require.True(t, ok)
	assert.Len(t, errs, 8)
}
