/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lookup

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/mocks"
)

const sampleConfig = `
client:
  gateway:
    url: http://localhost:8080/api/
    timeout: 15s
  channel:
    id: common
    chaincode: hlf_iot_cc
    mspid: hlfiotMSP
    fcn: addIotCertificate
    args: [device-1, sensor]
  peers: hlfiot/peer0,device/peer0
`

var backend *mocks.MockConfigBackend

type gatewaySettings struct {
	URL     string
	Timeout time.Duration
}

type channelSettings struct {
	ID        string
	Chaincode string
	MSPID     string
	Fcn       string
	Args      []string
}

func TestMain(m *testing.M) {
	backend = setupCustomBackend("key")
	r := m.Run()
	os.Exit(r)
}

func TestGetBool(t *testing.T) {
	//Test single backend lookup
	testLookup := New(backend)
	assert.True(t, testLookup.GetBool("key.bool.true"), "expected lookup to return true")
	assert.False(t, testLookup.GetBool("key.bool.false"), "expected lookup to return false")
	assert.False(t, testLookup.GetBool("key.bool.invalid"), "expected lookup to return false for invalid value")
	assert.False(t, testLookup.GetBool("key.bool.notexisting"), "expected lookup to return false for not existing value")

	//Test With multiple backend
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	backends := getMultipleCustomBackends(keyPrefixes)
	testLookup = New(backends...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetBool(prefix+".bool.true"), "expected lookup to return true")
		assert.False(t, testLookup.GetBool(prefix+".bool.false"), "expected lookup to return false")
		assert.False(t, testLookup.GetBool(prefix+".bool.invalid"), "expected lookup to return false for invalid value")
		assert.False(t, testLookup.GetBool(prefix+".bool.notexisting"), "expected lookup to return false for not existing value")
	}
}

func TestGetInt(t *testing.T) {
	testLookup := New(backend)
	assert.True(t, testLookup.GetInt("key.int.positive") == 5, "expected lookup to return valid positive value")
	assert.True(t, testLookup.GetInt("key.int.negative") == -5, "expected lookup to return valid negative value")
	assert.True(t, testLookup.GetInt("key.int.invalid") == 0, "expected lookup to return 0")
	assert.True(t, testLookup.GetInt("key.int.not.existing") == 0, "expected lookup to return 0")

	//Test With multiple backend
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	backends := getMultipleCustomBackends(keyPrefixes)
	testLookup = New(backends...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetInt(prefix+".int.positive") == 5, "expected lookup to return valid positive value")
		assert.True(t, testLookup.GetInt(prefix+".int.negative") == -5, "expected lookup to return valid negative value")
		assert.True(t, testLookup.GetInt(prefix+".int.invalid") == 0, "expected lookup to return 0")
		assert.True(t, testLookup.GetInt(prefix+".int.not.existing") == 0, "expected lookup to return 0")
	}
}

func TestGetString(t *testing.T) {
	testLookup := New(backend)
	assert.True(t, testLookup.GetString("key.string.valid") == "valid-string", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetString("key.string.valid.lower.case") == "valid-string", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetString("key.string.valid.upper.case") == "VALID-STRING", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetString("key.string.valid.mixed.case") == "VaLiD-StRiNg", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetString("key.string.empty") == "", "expected lookup to return empty string value")
	assert.True(t, testLookup.GetString("key.string.nil") == "", "expected lookup to return empty string value")
	assert.True(t, testLookup.GetString("key.string.number") == "1234", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetString("key.string.not existing") == "", "expected lookup to return empty string value")

	//Test With multiple backend
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	backends := getMultipleCustomBackends(keyPrefixes)
	testLookup = New(backends...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetString(prefix+".string.valid") == "valid-string", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetString(prefix+".string.valid.lower.case") == "valid-string", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetString(prefix+".string.valid.upper.case") == "VALID-STRING", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetString(prefix+".string.valid.mixed.case") == "VaLiD-StRiNg", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetString(prefix+".string.empty") == "", "expected lookup to return empty string value")
		assert.True(t, testLookup.GetString(prefix+".string.nil") == "", "expected lookup to return empty string value")
		assert.True(t, testLookup.GetString(prefix+".string.number") == "1234", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetString(prefix+".string.not existing") == "", "expected lookup to return empty string value")
	}
}

func TestGetLowerString(t *testing.T) {
	testLookup := New(backend)
	assert.True(t, testLookup.GetLowerString("key.string.valid") == "valid-string", "expected lookup to return valid lowercase string value")
	assert.True(t, testLookup.GetLowerString("key.string.valid.lower.case") == "valid-string", "expected lookup to return valid lowercase string value")
	assert.True(t, testLookup.GetLowerString("key.string.valid.upper.case") == "valid-string", "expected lookup to return valid lowercase string value")
	assert.True(t, testLookup.GetLowerString("key.string.valid.mixed.case") == "valid-string", "expected lookup to return valid lowercase string value")
	assert.True(t, testLookup.GetLowerString("key.string.empty") == "", "expected lookup to return empty string value")
	assert.True(t, testLookup.GetLowerString("key.string.nil") == "", "expected lookup to return empty string value")
	assert.True(t, testLookup.GetLowerString("key.string.number") == "1234", "expected lookup to return valid string value")
	assert.True(t, testLookup.GetLowerString("key.string.not existing") == "", "expected lookup to return empty string value")

	//Test With multiple backends
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	backends := getMultipleCustomBackends(keyPrefixes)
	testLookup = New(backends...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetLowerString(prefix+".string.valid") == "valid-string", "expected lookup to return valid lowercase string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.valid.lower.case") == "valid-string", "expected lookup to return valid lowercase string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.valid.upper.case") == "valid-string", "expected lookup to return valid lowercase string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.valid.mixed.case") == "valid-string", "expected lookup to return valid lowercase string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.empty") == "", "expected lookup to return empty string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.nil") == "", "expected lookup to return empty string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.number") == "1234", "expected lookup to return valid string value")
		assert.True(t, testLookup.GetLowerString(prefix+".string.not existing") == "", "expected lookup to return empty string value")
	}
}

func TestGetDuration(t *testing.T) {
	testLookup := New(backend)
	assert.True(t, testLookup.GetDuration("key.duration.valid.hour").String() == (24*time.Hour).String(), "expected valid time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.minute").String() == (24*time.Minute).String(), "expected valid time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.second").String() == (24*time.Second).String(), "expected valid time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.millisecond").String() == (24*time.Millisecond).String(), "expected valid time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.nanosecond").String() == (24*time.Nanosecond).String(), "expected valid time value")
	//default value tests
	assert.True(t, testLookup.GetDuration("key.duration.valid.not.existing").String() == (0*time.Second).String(), "expected valid default time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.invalid").String() == (0*time.Second).String(), "expected valid  default time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.nil").String() == (0*time.Second).String(), "expected valid  default time value")
	assert.True(t, testLookup.GetDuration("key.duration.valid.empty").String() == (0*time.Second).String(), "expected valid  default time value")
	//default when no time unit provided
	assert.True(t, testLookup.GetDuration("key.duration.valid.no.unit").String() == (12*time.Nanosecond).String(), "expected valid default time value with default unit")

	//Test With multiple backends
	keyPrefixes := []string{"key1", "key2", "key3", "key4"}
	backends := getMultipleCustomBackends(keyPrefixes)
	testLookup = New(backends...)

	for _, prefix := range keyPrefixes {
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.hour").String() == (24*time.Hour).String(), "expected valid time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.minute").String() == (24*time.Minute).String(), "expected valid time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.second").String() == (24*time.Second).String(), "expected valid time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.millisecond").String() == (24*time.Millisecond).String(), "expected valid time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.nanosecond").String() == (24*time.Nanosecond).String(), "expected valid time value")
		//default value tests
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.not.existing").String() == (0*time.Second).String(), "expected valid default time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.invalid").String() == (0*time.Second).String(), "expected valid  default time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.nil").String() == (0*time.Second).String(), "expected valid  default time value")
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.empty").String() == (0*time.Second).String(), "expected valid  default time value")
		//default when no time unit provided
		assert.True(t, testLookup.GetDuration(prefix+".duration.valid.no.unit").String() == (12*time.Nanosecond).String(), "expected valid default time value with default unit")
	}
}

func TestGetStringSlice(t *testing.T) {
	testLookup := New(backend)
	assert.Equal(t, []string{"hlfiot/peer0", "device/peer0", "hlfiot/peer0"}, testLookup.GetStringSlice("key.slice.string"))
	assert.Equal(t, []string{"a", "b"}, testLookup.GetStringSlice("key.slice.list"))
	assert.Nil(t, testLookup.GetStringSlice("key.slice.empty"))
	assert.Nil(t, testLookup.GetStringSlice("key.slice.not.existing"))
}

func TestUnmarshal(t *testing.T) {
	testLookup := New(backend)

	gateway := gatewaySettings{}
	require.NoError(t, testLookup.UnmarshalKey("client.gateway", &gateway))
	assert.Equal(t, "http://localhost:8080/api/", gateway.URL)
	assert.Equal(t, 15*time.Second, gateway.Timeout, "mandatory duration hook must decode durations")

	channel := channelSettings{Fcn: "preset"}
	require.NoError(t, testLookup.UnmarshalKey("client.channel", &channel))
	assert.Equal(t, "common", channel.ID)
	assert.Equal(t, "hlf_iot_cc", channel.Chaincode)
	assert.Equal(t, "hlfiotMSP", channel.MSPID)
	assert.Equal(t, "addIotCertificate", channel.Fcn)
	assert.Equal(t, []string{"device-1", "sensor"}, channel.Args)

	//missing keys leave the target untouched
	untouched := channelSettings{ID: "keep"}
	require.NoError(t, testLookup.UnmarshalKey("client.missing", &untouched))
	assert.Equal(t, "keep", untouched.ID)
}

func TestUnmarshalWithMultipleBackend(t *testing.T) {
	override := mocks.NewMockConfigBackend(map[string]interface{}{
		"client.channel": map[string]interface{}{"id": "devices"},
	})
	testLookup := New(nil, override, backend)

	channel := channelSettings{}
	require.NoError(t, testLookup.UnmarshalKey("client.channel", &channel))
	assert.Equal(t, "devices", channel.ID, "first backend holding the key wins")
	assert.Empty(t, channel.Chaincode)
}

func TestUnmarshalWithHookFunc(t *testing.T) {
	b := mocks.NewMockConfigBackend(map[string]interface{}{
		"client.channel": map[string]interface{}{"id": "common", "args": "a,b,c"},
	})
	testLookup := New(b)

	channel := channelSettings{}
	require.NoError(t, testLookup.UnmarshalKey("client.channel", &channel,
		WithUnmarshalHookFunction(mapstructure.StringToSliceHookFunc(","))))
	assert.Equal(t, []string{"a", "b", "c"}, channel.Args)
}

func TestLookupUnmarshalAgainstViperUnmarshal(t *testing.T) {
	sampleViper := newViper()

	viperChannel := channelSettings{}
	require.NoError(t, sampleViper.UnmarshalKey("client.channel", &viperChannel))

	lookupChannel := channelSettings{}
	require.NoError(t, New(backend).UnmarshalKey("client.channel", &lookupChannel))

	assert.True(t, reflect.DeepEqual(viperChannel, lookupChannel), "lookup and viper unmarshalling must agree")
}

func setupCustomBackend(keyPrefix string) *mocks.MockConfigBackend {

	backendMap := make(map[string]interface{})

	backendMap[keyPrefix+".bool.true"] = true
	backendMap[keyPrefix+".bool.false"] = false
	backendMap[keyPrefix+".bool.invalid"] = "INVALID"

	backendMap[keyPrefix+".int.positive"] = 5
	backendMap[keyPrefix+".int.negative"] = -5
	backendMap[keyPrefix+".int.invalid"] = "INVALID"

	backendMap[keyPrefix+".string.valid"] = "valid-string"
	backendMap[keyPrefix+".string.valid.mixed.case"] = "VaLiD-StRiNg"
	backendMap[keyPrefix+".string.valid.lower.case"] = "valid-string"
	backendMap[keyPrefix+".string.valid.upper.case"] = "VALID-STRING"
	backendMap[keyPrefix+".string.empty"] = ""
	backendMap[keyPrefix+".string.nil"] = nil
	backendMap[keyPrefix+".string.number"] = 1234

	backendMap[keyPrefix+".slice.string"] = "hlfiot/peer0, device/peer0,hlfiot/peer0"
	backendMap[keyPrefix+".slice.list"] = []interface{}{"a", "b"}
	backendMap[keyPrefix+".slice.empty"] = " , "

	backendMap[keyPrefix+".duration.valid.hour"] = "24h"
	backendMap[keyPrefix+".duration.valid.minute"] = "24m"
	backendMap[keyPrefix+".duration.valid.second"] = "24s"
	backendMap[keyPrefix+".duration.valid.millisecond"] = "24ms"
	backendMap[keyPrefix+".duration.valid.nanosecond"] = "24ns"
	backendMap[keyPrefix+".duration.valid.no.unit"] = "12"
	backendMap[keyPrefix+".duration.invalid"] = "24XYZ"
	backendMap[keyPrefix+".duration.nil"] = nil
	backendMap[keyPrefix+".duration.empty"] = ""

	sampleViper := newViper()
	backendMap["client.gateway"] = sampleViper.Get("client.gateway")
	backendMap["client.channel"] = sampleViper.Get("client.channel")

	return &mocks.MockConfigBackend{KeyValueMap: backendMap}
}

func getMultipleCustomBackends(keyPrefixes []string) []core.ConfigBackend {
	var backends []core.ConfigBackend
	for _, prefix := range keyPrefixes {
		backends = append(backends, setupCustomBackend(prefix))
	}
	return backends
}

func newViper() *viper.Viper {
	myViper := viper.New()
	replacer := strings.NewReplacer(".", "_")
	myViper.SetEnvKeyReplacer(replacer)
	myViper.SetConfigType("yaml")
	if err := myViper.ReadConfig(strings.NewReader(sampleConfig)); err != nil {
		panic(err)
	}
	return myViper
}
