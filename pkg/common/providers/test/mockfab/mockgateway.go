/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockfab

import (
	"encoding/json"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/providers/fab"
)

// ErrorMessage is a mock error message
const ErrorMessage = "default error message"

// TransportError is a mock connection failure
var TransportError = status.New(status.HTTPTransportStatus, status.ConnectionFailed.ToInt32(), ErrorMessage, nil)

// JSON marshals v for use as a mocked response body and panics on failure
func JSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(errors.Wrap(err, "marshal of mock response failed"))
	}
	return raw
}

// Endpoint matches calls made to the given endpoint
func Endpoint(endpoint fab.Endpoint) gomock.Matcher {
	return gomock.Eq(endpoint)
}

// FailingGateway returns a gateway on which every call fails with a transport error
func FailingGateway(mockCtrl *gomock.Controller) *MockGateway {
	gw := NewMockGateway(mockCtrl)
	gw.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, TransportError).AnyTimes()
	gw.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, TransportError).AnyTimes()
	return gw
}
