/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"net/http"
	"time"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/common/errors/status"
)

const (
	// DefaultAttempts number of retry attempts made by default
	DefaultAttempts = 3
	// DefaultInitialBackoff default initial backoff
	DefaultInitialBackoff = 2 * time.Second
	// DefaultMaxBackoff default maximum backoff
	DefaultMaxBackoff = 60 * time.Second
	// DefaultBackoffFactor default backoff factor
	DefaultBackoffFactor = 2.0
)

// DefaultOpts default retry options
var DefaultOpts = Opts{
	Attempts:       DefaultAttempts,
	InitialBackoff: DefaultInitialBackoff,
	MaxBackoff:     DefaultMaxBackoff,
	BackoffFactor:  DefaultBackoffFactor,
	RetryableCodes: DefaultRetryableCodes,
}

// DefaultRetryableCodes these are the error codes, grouped by source of error,
// that are considered to be transient error conditions by default
var DefaultRetryableCodes = map[status.Group][]status.Code{
	status.HTTPTransportStatus: {
		status.ConnectionFailed,
		status.Timeout,
	},
	status.FabricCAServerStatus: {
		status.Code(http.StatusInternalServerError),
		status.Code(http.StatusBadGateway),
		status.Code(http.StatusServiceUnavailable),
		status.Code(http.StatusGatewayTimeout),
	},
	status.GatewayServerStatus: {
		status.Code(http.StatusBadGateway),
		status.Code(http.StatusServiceUnavailable),
		status.Code(http.StatusGatewayTimeout),
	},
	status.ClientStatus: {
		status.EnrollmentRejected,
	},
	status.TestStatus: {
		status.GenericTransient,
	},
}
