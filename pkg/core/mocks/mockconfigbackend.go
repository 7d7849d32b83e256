/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/mitchellh/mapstructure"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/core"
)

//MockConfigBackend mocks config backend for unit tests
type MockConfigBackend struct {
	//KeyValueMap map to override CustomBackend key-values.
	KeyValueMap map[string]interface{}
}

//NewMockConfigBackend returns a backend holding the given key-values
func NewMockConfigBackend(kv map[string]interface{}) *MockConfigBackend {
	if kv == nil {
		kv = make(map[string]interface{})
	}
	return &MockConfigBackend{KeyValueMap: kv}
}

//Lookup returns or unmarshals value for given key
func (b *MockConfigBackend) Lookup(key string, opts ...core.LookupOption) (interface{}, bool) {
	v, ok := b.KeyValueMap[key]
	if !ok || len(opts) == 0 {
		return v, ok
	}

	lookupOpts := &core.LookupOpts{}
	for _, option := range opts {
		option(lookupOpts)
	}
	if lookupOpts.UnmarshalType == nil {
		return v, ok
	}
	if err := mapstructure.Decode(v, lookupOpts.UnmarshalType); err != nil {
		return nil, false
	}
	return lookupOpts.UnmarshalType, true
}

//Set overrides the value of a key
func (b *MockConfigBackend) Set(key string, value interface{}) {
	b.KeyValueMap[key] = value
}

//Provider returns a config provider serving this backend
func (b *MockConfigBackend) Provider() core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return []core.ConfigBackend{b}, nil
	}
}
